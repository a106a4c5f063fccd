package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docsend/internal/service"
)

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Deliver(ctx context.Context, in service.DeliverInput) (*service.DeliveryResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeliveryResult), args.Error(1)
}

func (m *MockDeliveryService) RetryRecord(ctx context.Context, deliverErr error) error {
	args := m.Called(ctx, deliverErr)
	return args.Error(0)
}
