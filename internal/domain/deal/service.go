package deal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Service handles deal operations.
type Service struct {
	backend repository.Backend
	logger  *slog.Logger
}

// NewService creates a new deal service.
func NewService(backend repository.Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{backend: backend, logger: logger}
}

// CreateRequest defines deal creation inputs. Stage defaults to lead and
// Probability to DefaultProbability.
type CreateRequest struct {
	Title             string    `json:"title"`
	Value             float64   `json:"value"`
	Stage             Stage     `json:"stage"`
	ContactID         int64     `json:"contact_id"`
	Probability       *int      `json:"probability,omitempty"`
	ExpectedCloseDate time.Time `json:"expected_close_date"`
}

// UpdateRequest defines deal update inputs. Nil fields are left unchanged.
type UpdateRequest struct {
	Title             *string    `json:"title,omitempty"`
	Value             *float64   `json:"value,omitempty"`
	Stage             *Stage     `json:"stage,omitempty"`
	ContactID         *int64     `json:"contact_id,omitempty"`
	Probability       *int       `json:"probability,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
}

// List returns every deal in backend order.
func (s *Service) List(ctx context.Context) ([]Deal, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	return fromRecords(recs), nil
}

// Get fetches a deal by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Deal, error) {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("getting deal: %w", err)
	}
	d := FromRecord(rec)
	return &d, nil
}

// ListByContact returns the deals of one contact. No match is an empty list.
func (s *Service) ListByContact(ctx context.Context, contactID int64) ([]Deal, error) {
	recs, err := s.backend.ListByParent(ctx, FieldContactID, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing deals for contact %d: %w", contactID, err)
	}
	return fromRecords(recs), nil
}

// Create validates and stores a new deal.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Deal, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	stage := req.Stage
	if stage == "" {
		stage = StageLead
	}
	probability := DefaultProbability
	if req.Probability != nil {
		probability = *req.Probability
	}

	d := Deal{
		Title:             strings.TrimSpace(req.Title),
		Value:             req.Value,
		Stage:             stage,
		ContactID:         req.ContactID,
		Probability:       probability,
		ExpectedCloseDate: req.ExpectedCloseDate.UTC(),
	}

	rec, err := s.backend.Create(ctx, d.Fields())
	if err != nil {
		return nil, fmt.Errorf("creating deal: %w", err)
	}
	created := FromRecord(rec)
	s.logger.Info("deal created", "id", created.ID, "contact_id", created.ContactID, "stage", created.Stage)
	return &created, nil
}

// Update applies the supplied fields to an existing deal.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Deal, error) {
	if err := ValidateUpdateInput(req); err != nil {
		return nil, err
	}

	patch := repository.Fields{}
	if req.Title != nil {
		patch[FieldTitle] = strings.TrimSpace(*req.Title)
	}
	if req.Value != nil {
		patch[FieldValue] = *req.Value
	}
	if req.Stage != nil {
		patch[FieldStage] = string(*req.Stage)
	}
	if req.ContactID != nil {
		patch[FieldContactID] = *req.ContactID
	}
	if req.Probability != nil {
		patch[FieldProbability] = int64(*req.Probability)
	}
	if req.ExpectedCloseDate != nil {
		patch[FieldExpectedCloseDate] = req.ExpectedCloseDate.UTC()
	}

	return s.apply(ctx, id, patch)
}

// MoveToStage changes only the stage of a deal.
func (s *Service) MoveToStage(ctx context.Context, id int64, stage Stage) (*Deal, error) {
	if !stage.Valid() {
		var p repository.Problems
		checkStage(&p, stage)
		return nil, p.Err(ErrInvalidInput)
	}
	d, err := s.apply(ctx, id, repository.Fields{FieldStage: string(stage)})
	if err != nil {
		return nil, err
	}
	s.logger.Info("deal moved", "id", id, "stage", stage)
	return d, nil
}

// Pipeline returns the per-stage count and total value of all deals.
func (s *Service) Pipeline(ctx context.Context) ([]StageSummary, error) {
	deals, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildPipeline(deals), nil
}

// Delete removes a deal.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrDealNotFound
		}
		return false, fmt.Errorf("deleting deal: %w", err)
	}
	return ok, nil
}

func (s *Service) apply(ctx context.Context, id int64, patch repository.Fields) (*Deal, error) {
	rec, err := s.backend.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("updating deal: %w", err)
	}
	d := FromRecord(rec)
	return &d, nil
}

func fromRecords(recs []repository.Record) []Deal {
	out := make([]Deal, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}
