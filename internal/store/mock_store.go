package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreatePending(ctx context.Context, req Request) (Record, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockStore) Complete(ctx context.Context, id uuid.UUID, c Completion) error {
	args := m.Called(ctx, id, c)
	return args.Error(0)
}

func (m *MockStore) SaveAnswer(ctx context.Context, req Request, c Completion) (Record, error) {
	args := m.Called(ctx, req, c)
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
