package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCaller is a testify mock of the Caller interface.
type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Call(ctx context.Context, prompt string) (string, Usage, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Get(1).(Usage), args.Error(2)
}
