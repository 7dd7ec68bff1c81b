package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Service handles activity log operations.
type Service struct {
	backend repository.Backend
	logger  *slog.Logger
}

// NewService creates a new activity service.
func NewService(backend repository.Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{backend: backend, logger: logger}
}

// CreateRequest defines activity inputs. Type defaults to call.
type CreateRequest struct {
	Type        Type      `json:"type"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	ContactID   int64     `json:"contact_id"`
	DealID      *int64    `json:"deal_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    *int      `json:"duration,omitempty"`
}

// UpdateRequest defines activity update inputs. Nil fields are left unchanged.
type UpdateRequest struct {
	Type        *Type      `json:"type,omitempty"`
	Subject     *string    `json:"subject,omitempty"`
	Description *string    `json:"description,omitempty"`
	ContactID   *int64     `json:"contact_id,omitempty"`
	DealID      *int64     `json:"deal_id,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Duration    *int       `json:"duration,omitempty"`
}

// List returns the activities matching opts, most recent first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Activity, error) {
	var (
		recs []repository.Record
		err  error
	)
	if opts.ContactID != nil {
		recs, err = s.backend.ListByParent(ctx, FieldContactID, *opts.ContactID)
	} else {
		recs, err = s.backend.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	out := make([]Activity, 0, len(recs))
	for _, rec := range recs {
		a := FromRecord(rec)
		if opts.matches(a) {
			out = append(out, a)
		}
	}
	SortNewestFirst(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListByContact returns the activities of one contact, most recent first.
func (s *Service) ListByContact(ctx context.Context, contactID int64) ([]Activity, error) {
	return s.List(ctx, ListOptions{ContactID: &contactID})
}

// Recent returns the activities at or after since, most recent first.
func (s *Service) Recent(ctx context.Context, since time.Time) ([]Activity, error) {
	return s.List(ctx, ListOptions{Since: since})
}

// Get fetches an activity by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Activity, error) {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("getting activity: %w", err)
	}
	a := FromRecord(rec)
	return &a, nil
}

// Create validates and logs a new activity.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Activity, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	a := Activity{
		Type:        req.Type,
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		ContactID:   req.ContactID,
		DealID:      req.DealID,
		Timestamp:   req.Timestamp.UTC(),
		Duration:    req.Duration,
	}
	if a.Type == "" {
		a.Type = TypeCall
	}

	rec, err := s.backend.Create(ctx, a.Fields())
	if err != nil {
		return nil, fmt.Errorf("logging activity: %w", err)
	}
	created := FromRecord(rec)
	s.logger.Info("activity logged", "id", created.ID, "type", created.Type, "contact_id", created.ContactID)
	return &created, nil
}

// Update applies the supplied fields to an existing activity.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Activity, error) {
	if err := ValidateUpdateInput(req); err != nil {
		return nil, err
	}

	patch := repository.Fields{}
	if req.Type != nil {
		patch[FieldType] = string(*req.Type)
	}
	if req.Subject != nil {
		patch[FieldSubject] = strings.TrimSpace(*req.Subject)
	}
	if req.Description != nil {
		patch[FieldDescription] = strings.TrimSpace(*req.Description)
	}
	if req.ContactID != nil {
		patch[FieldContactID] = *req.ContactID
	}
	if req.DealID != nil {
		patch[FieldDealID] = *req.DealID
	}
	if req.Timestamp != nil {
		patch[FieldTimestamp] = req.Timestamp.UTC()
	}
	if req.Duration != nil {
		patch[FieldDuration] = int64(*req.Duration)
	}

	rec, err := s.backend.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("updating activity: %w", err)
	}
	updated := FromRecord(rec)
	return &updated, nil
}

// Delete removes an activity.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrActivityNotFound
		}
		return false, fmt.Errorf("deleting activity: %w", err)
	}
	return ok, nil
}
