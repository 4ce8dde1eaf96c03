package queue

import (
	"encoding/json"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/batch"
	"github.com/hai0823/AIQualityKit/internal/provider"
)

// RunBatchPayload is the body of a TaskTypeRunBatch task. The provider
// credentials travel inside it and must never be logged.
type RunBatchPayload struct {
	BatchID   string          `json:"batch_id"`
	Mode      analyze.Mode    `json:"mode"`
	Execution batch.Execution `json:"execution"`
	Rows      []batch.Row     `json:"rows"`
	Provider  provider.Config `json:"provider"`
}

// BatchDonePayload is the body of a TaskTypeBatchDone task.
type BatchDonePayload struct {
	BatchID      string `json:"batch_id"`
	SuccessCount int    `json:"success_count"`
	FailedCount  int    `json:"failed_count"`
}

// NewRunBatchTask packs a run payload into a task.
func NewRunBatchTask(p RunBatchPayload) (Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{Type: TaskTypeRunBatch, Payload: body}, nil
}

// NewBatchDoneTask packs a completion payload into a task.
func NewBatchDoneTask(p BatchDonePayload) (Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{Type: TaskTypeBatchDone, Payload: body}, nil
}
