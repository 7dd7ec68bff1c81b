package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/crmdesk/internal/repository"
)

// Error codes carried in the error envelope.
const (
	CodeNotFound     = "not_found"
	CodeInvalidInput = "invalid_input"
	CodeBadRequest   = "bad_request"
	CodeRejected     = "rejected"
	CodeUpstream     = "upstream_failure"
	CodeUnauthorized = "unauthorized"
	CodeCanceled     = "canceled"
	CodeInternal     = "internal"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string                  `json:"code"`
	Message   string                  `json:"message"`
	Fields    []repository.FieldError `json:"fields,omitempty"`
	RequestID string                  `json:"request_id,omitempty"`
}

// ErrorStatus maps an error to an HTTP status and envelope.
func ErrorStatus(err error) (int, errorBody) {
	var (
		inputErr  *InputError
		recordErr *repository.RecordError
		domainErr *repository.InputError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, errorBody{Code: CodeBadRequest, Message: inputErr.Error()}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, errorBody{Code: CodeNotFound, Message: err.Error()}
	case errors.As(err, &domainErr):
		return http.StatusBadRequest, errorBody{Code: CodeInvalidInput, Message: err.Error(), Fields: domainErr.Fields}
	case errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest, errorBody{Code: CodeInvalidInput, Message: err.Error()}
	case errors.As(err, &recordErr):
		return http.StatusUnprocessableEntity, errorBody{Code: CodeRejected, Message: err.Error(), Fields: recordErr.Fields}
	case errors.Is(err, repository.ErrRemote), errors.Is(err, repository.ErrTransport):
		return http.StatusBadGateway, errorBody{Code: CodeUpstream, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorBody{Code: CodeCanceled, Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Code: CodeInternal, Message: "internal error"}
	}
}

// InputError reports a malformed request: bad JSON, path or query values.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, r, status, body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, body errorBody) {
	body.RequestID, _ = RequestIDFromContext(r.Context())
	writeJSON(w, status, ErrorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeBody parses a JSON request body. Unknown fields are rejected.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, badRequest("invalid %s %q", name, raw)
	}
	return &v, nil
}

// deleted is the body of a successful delete.
type deleted struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}
