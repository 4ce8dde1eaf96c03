package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hai0823/AIQualityKit/internal/batch"
)

// MockStore is a testify mock of the Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateBatch(ctx context.Context, b Batch) (Batch, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(Batch), args.Error(1)
}

func (m *MockStore) GetBatch(ctx context.Context, id string) (Batch, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Batch), args.Error(1)
}

func (m *MockStore) UpdateBatchStatus(ctx context.Context, id string, status BatchStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockStore) SaveReport(ctx context.Context, report batch.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockStore) GetReport(ctx context.Context, batchID string) (batch.Report, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(batch.Report), args.Error(1)
}
