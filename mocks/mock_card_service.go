package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cardlens/internal/service"
)

// MockCardService is a mock implementation of service.CardService.
type MockCardService struct {
	mock.Mock
}

func (m *MockCardService) Process(ctx context.Context, input service.ProcessInput) (*service.ProcessOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessOutput), args.Error(1)
}
