package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Service handles comment operations.
type Service struct {
	backend repository.Backend
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to stamp new comments.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new comment service.
func NewService(backend repository.Backend, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{backend: backend, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest defines comment creation inputs.
type CreateRequest struct {
	ContactID int64  `json:"contact_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
}

// UpdateRequest defines comment update inputs.
type UpdateRequest struct {
	Content *string `json:"content,omitempty"`
	Author  *string `json:"author,omitempty"`
}

// List returns every comment, most recent first.
func (s *Service) List(ctx context.Context) ([]Comment, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return fromRecords(recs), nil
}

// ListByContact returns the comments on one contact, most recent first.
func (s *Service) ListByContact(ctx context.Context, contactID int64) ([]Comment, error) {
	recs, err := s.backend.ListByParent(ctx, FieldContactID, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing comments for contact %d: %w", contactID, err)
	}
	return fromRecords(recs), nil
}

// CountByContact returns how many comments a contact has.
func (s *Service) CountByContact(ctx context.Context, contactID int64) (int, error) {
	recs, err := s.backend.ListByParent(ctx, FieldContactID, contactID)
	if err != nil {
		return 0, fmt.Errorf("counting comments for contact %d: %w", contactID, err)
	}
	return len(recs), nil
}

// Get fetches a comment by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Comment, error) {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("getting comment: %w", err)
	}
	c := FromRecord(rec)
	return &c, nil
}

// Create stores a new comment stamped with the current time and not edited.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Comment, error) {
	var p repository.Problems
	if req.ContactID <= 0 {
		p.Add(FieldContactID, "is required")
	}
	p.Require(FieldAuthor, req.Author)
	p.Require(FieldContent, req.Content)
	if err := p.Err(ErrInvalidInput); err != nil {
		return nil, err
	}

	c := Comment{
		ContactID: req.ContactID,
		Author:    strings.TrimSpace(req.Author),
		Content:   strings.TrimSpace(req.Content),
		Timestamp: s.now().UTC(),
		Edited:    false,
	}

	rec, err := s.backend.Create(ctx, c.Fields())
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	created := FromRecord(rec)
	return &created, nil
}

// Update changes the content or author of a comment and marks it edited. At
// least one of them must be supplied.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Comment, error) {
	var p repository.Problems
	if req.Content == nil && req.Author == nil {
		p.Add(FieldContent, "is required")
	}
	if req.Content != nil {
		p.Require(FieldContent, *req.Content)
	}
	if req.Author != nil {
		p.Require(FieldAuthor, *req.Author)
	}
	if err := p.Err(ErrInvalidInput); err != nil {
		return nil, err
	}

	patch := repository.Fields{FieldEdited: true}
	if req.Content != nil {
		patch[FieldContent] = strings.TrimSpace(*req.Content)
	}
	if req.Author != nil {
		patch[FieldAuthor] = strings.TrimSpace(*req.Author)
	}
	rec, err := s.backend.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("updating comment: %w", err)
	}
	updated := FromRecord(rec)
	return &updated, nil
}

// Delete removes a comment.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrCommentNotFound
		}
		return false, fmt.Errorf("deleting comment: %w", err)
	}
	return ok, nil
}

func fromRecords(recs []repository.Record) []Comment {
	out := make([]Comment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	sortNewestFirst(out)
	return out
}
