package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Service handles task operations.
type Service struct {
	backend repository.Backend
	logger  *slog.Logger
}

// NewService creates a new task service.
func NewService(backend repository.Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{backend: backend, logger: logger}
}

// CreateRequest defines task creation inputs. Priority defaults to medium and
// Completed to false.
type CreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	ContactID   int64      `json:"contact_id"`
}

// UpdateRequest defines task update inputs. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	ContactID   *int64     `json:"contact_id,omitempty"`
}

// List returns every task in backend order.
func (s *Service) List(ctx context.Context) ([]Task, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return fromRecords(recs), nil
}

// Get fetches a task by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	rec, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("getting task: %w", err)
	}
	t := FromRecord(rec)
	return &t, nil
}

// ListByContact returns the tasks of one contact. No match is an empty list.
func (s *Service) ListByContact(ctx context.Context, contactID int64) ([]Task, error) {
	recs, err := s.backend.ListByParent(ctx, FieldContactID, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for contact %d: %w", contactID, err)
	}
	return fromRecords(recs), nil
}

// Create validates and stores a new task.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Task, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}

	t := Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    req.Priority,
		ContactID:   req.ContactID,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if req.DueDate != nil {
		due := req.DueDate.UTC()
		t.DueDate = &due
	}

	rec, err := s.backend.Create(ctx, t.Fields())
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	created := FromRecord(rec)
	return &created, nil
}

// Update applies the supplied fields to an existing task.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Task, error) {
	if err := ValidateUpdateInput(req); err != nil {
		return nil, err
	}

	patch := repository.Fields{}
	if req.Title != nil {
		patch[FieldTitle] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		patch[FieldDescription] = *req.Description
	}
	if req.Priority != nil {
		patch[FieldPriority] = string(*req.Priority)
	}
	if req.DueDate != nil {
		patch[FieldDueDate] = req.DueDate.UTC()
	}
	if req.Completed != nil {
		patch[FieldCompleted] = *req.Completed
	}
	if req.ContactID != nil {
		patch[FieldContactID] = *req.ContactID
	}

	return s.apply(ctx, id, patch)
}

// ToggleComplete flips the completed flag of a task.
func (s *Service) ToggleComplete(ctx context.Context, id int64) (*Task, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.apply(ctx, id, repository.Fields{FieldCompleted: !current.Completed})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task toggled", "id", id, "completed", t.Completed)
	return t, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.backend.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrTaskNotFound
		}
		return false, fmt.Errorf("deleting task: %w", err)
	}
	return ok, nil
}

func (s *Service) apply(ctx context.Context, id int64, patch repository.Fields) (*Task, error) {
	rec, err := s.backend.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("updating task: %w", err)
	}
	t := FromRecord(rec)
	return &t, nil
}

func fromRecords(recs []repository.Record) []Task {
	out := make([]Task, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}
