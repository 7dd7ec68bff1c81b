package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/crmdesk/internal/repository"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RecoveryHint != "" {
		msg += " (hint: " + e.RecoveryHint + ")"
	}
	return msg
}

// MapError maps domain and backend errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var (
		apiErr    *APIError
		inputErr  *repository.InputError
		recordErr *repository.RecordError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: err.Error(), RecoveryHint: "List the entity to find a valid id"}
	case errors.As(err, &inputErr):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), Details: inputErr.Fields, RecoveryHint: "Fix the listed fields and retry"}
	case errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check argument values"}
	case errors.As(err, &recordErr):
		return &APIError{Code: "REJECTED", Message: err.Error(), Details: recordErr.Fields, RecoveryHint: "The record service rejected the write; check field values"}
	case errors.Is(err, repository.ErrRemote), errors.Is(err, repository.ErrTransport):
		return &APIError{Code: "UPSTREAM_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Retry later"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: "CANCELED", Message: err.Error()}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}

func invalidArgument(format string, args ...any) *APIError {
	return &APIError{Code: "INVALID_INPUT", Message: fmt.Sprintf(format, args...), RecoveryHint: "Check argument values"}
}
