package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cardlens/internal/domain"
	"cardlens/internal/port"
)

// MockNormalizer is a mock implementation of port.Normalizer.
type MockNormalizer struct {
	mock.Mock
}

func (m *MockNormalizer) Normalize(ctx context.Context, file port.SideFile) ([]domain.NormalizedImage, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NormalizedImage), args.Error(1)
}
