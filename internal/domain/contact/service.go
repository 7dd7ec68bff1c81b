package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Service handles contact operations.
type Service struct {
	backend repository.Backend
	logger  *slog.Logger
}

// NewService creates a new contact service.
func NewService(backend repository.Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{backend: backend, logger: logger}
}

// CreateRequest defines contact creation inputs.
type CreateRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Company  string   `json:"company"`
	Position string   `json:"position"`
	Tags     []string `json:"tags"`
}

// UpdateRequest defines contact update inputs. Nil fields are left unchanged;
// a non-nil empty Tags clears the tags.
type UpdateRequest struct {
	Name     *string  `json:"name,omitempty"`
	Email    *string  `json:"email,omitempty"`
	Phone    *string  `json:"phone,omitempty"`
	Company  *string  `json:"company,omitempty"`
	Position *string  `json:"position,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// List returns every contact in backend order.
func (s *Service) List(ctx context.Context) ([]Contact, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	out := make([]Contact, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out, nil
}

// Get fetches a contact by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Contact, error) {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	c := FromRecord(rec)
	return &c, nil
}

// Search returns the contacts whose name, email or company contains query.
// A blank query returns every contact.
func (s *Service) Search(ctx context.Context, query string) ([]Contact, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Contact, 0, len(all))
	for _, c := range all {
		if c.Matches(query) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Create validates and stores a new contact.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Contact, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	c := Contact{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Company:  strings.TrimSpace(req.Company),
		Position: strings.TrimSpace(req.Position),
		Tags:     NormalizeTags(req.Tags),
	}

	rec, err := s.backend.Create(ctx, c.Fields())
	if err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	created := FromRecord(rec)
	s.logger.Info("contact created", "id", created.ID)
	return &created, nil
}

// Update applies the supplied fields to an existing contact.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Contact, error) {
	if err := ValidateUpdateInput(req); err != nil {
		return nil, err
	}

	patch := repository.Fields{}
	setText(patch, FieldName, req.Name)
	setText(patch, FieldEmail, req.Email)
	setText(patch, FieldPhone, req.Phone)
	setText(patch, FieldCompany, req.Company)
	setText(patch, FieldPosition, req.Position)
	if req.Tags != nil {
		patch[FieldTags] = NormalizeTags(req.Tags)
	}

	rec, err := s.backend.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("updating contact: %w", err)
	}
	updated := FromRecord(rec)
	return &updated, nil
}

// Delete removes a contact. Related deals, tasks, activities and comments are
// left in place.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrContactNotFound
		}
		return false, fmt.Errorf("deleting contact: %w", err)
	}
	s.logger.Info("contact deleted", "id", id)
	return ok, nil
}

func setText(patch repository.Fields, field string, value *string) {
	if value != nil {
		patch[field] = strings.TrimSpace(*value)
	}
}
