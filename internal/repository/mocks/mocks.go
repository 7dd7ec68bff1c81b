package mocks

import (
	"context"

	"github.com/rpggio/crmdesk/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Backend is a mock for repository.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) List(ctx context.Context) ([]repository.Record, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]repository.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) Get(ctx context.Context, id int64) (repository.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(repository.Record); ok {
		return rec, args.Error(1)
	}
	return repository.Record{}, args.Error(1)
}

func (m *Backend) ListByParent(ctx context.Context, field string, parentID int64) ([]repository.Record, error) {
	args := m.Called(ctx, field, parentID)
	if list, ok := args.Get(0).([]repository.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) Create(ctx context.Context, fields repository.Fields) (repository.Record, error) {
	args := m.Called(ctx, fields)
	if rec, ok := args.Get(0).(repository.Record); ok {
		return rec, args.Error(1)
	}
	return repository.Record{}, args.Error(1)
}

func (m *Backend) Update(ctx context.Context, id int64, fields repository.Fields) (repository.Record, error) {
	args := m.Called(ctx, id, fields)
	if rec, ok := args.Get(0).(repository.Record); ok {
		return rec, args.Error(1)
	}
	return repository.Record{}, args.Error(1)
}

func (m *Backend) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
