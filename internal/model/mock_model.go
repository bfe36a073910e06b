package model

import (
	"context"

	"github.com/stretchr/testify/mock"

	"multilingual-qa/internal/tokenizer"
)

// MockModel is a mock implementation of Model using testify/mock.
type MockModel struct {
	mock.Mock
}

func (m *MockModel) Generate(ctx context.Context, enc tokenizer.Encoding, params GenerateParams) (Output, error) {
	args := m.Called(ctx, enc, params)
	return args.Get(0).(Output), args.Error(1)
}

// MockProvider is a mock implementation of Provider using testify/mock.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Load(ctx context.Context) (*Handle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Handle), args.Error(1)
}
