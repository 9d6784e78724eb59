package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cardlens/internal/domain"
)

// MockModelInvoker is a mock implementation of port.ModelInvoker.
type MockModelInvoker struct {
	mock.Mock
}

func (m *MockModelInvoker) Invoke(ctx context.Context, prompt string, images []domain.NormalizedImage) (string, error) {
	args := m.Called(ctx, prompt, images)
	return args.String(0), args.Error(1)
}
