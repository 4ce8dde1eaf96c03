package store

import (
	"context"
	"errors"
	"time"

	"github.com/hai0823/AIQualityKit/internal/batch"
)

type BatchStatus string

const (
	StatusPending   BatchStatus = "pending"
	StatusRunning   BatchStatus = "running"
	StatusCompleted BatchStatus = "completed"
	StatusFailed    BatchStatus = "failed"
)

var (
	ErrBatchNotFound  = errors.New("batch not found")
	ErrReportNotFound = errors.New("report not found")
)

// Batch is the lifecycle record for one submitted evaluation run.
type Batch struct {
	ID        string
	Mode      string
	Execution string
	Status    BatchStatus
	TotalRows int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateBatch(ctx context.Context, b Batch) (Batch, error)
	GetBatch(ctx context.Context, id string) (Batch, error)
	UpdateBatchStatus(ctx context.Context, id string, status BatchStatus, errMsg string) error
	SaveReport(ctx context.Context, report batch.Report) error
	GetReport(ctx context.Context, batchID string) (batch.Report, error)
}
