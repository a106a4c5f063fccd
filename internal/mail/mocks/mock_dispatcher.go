package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docsend/internal/mail"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
