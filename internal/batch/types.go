// Package batch runs answer evaluation over many rows with worker
// pools, resumable checkpoints and per-row failure isolation.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/provider"
)

// Row is one question/answer pair to evaluate. Citations maps source
// index to source text and may be empty for internal consistency runs.
type Row struct {
	Rank      int            `json:"rank"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Citations map[int]string `json:"citations,omitempty"`
}

// RowResult is the outcome for one row. APISuccess is false only when
// the provider call itself failed; an unparseable reply still counts
// as a successful call.
type RowResult struct {
	Rank       int               `json:"rank"`
	APISuccess bool              `json:"api_success"`
	Verdicts   []analyze.Verdict `json:"verdicts,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Report is the aggregate outcome of a batch. SuccessCount plus
// FailedCount always equals TotalRows, and Results are sorted by rank.
type Report struct {
	BatchID      string         `json:"batch_id"`
	Mode         string         `json:"mode"`
	TotalRows    int            `json:"total_rows"`
	SuccessCount int            `json:"success_count"`
	FailedCount  int            `json:"failed_count"`
	TokenTotals  provider.Usage `json:"token_totals"`
	Results      []RowResult    `json:"results"`
}

// CheckpointVersion guards the persisted layout. Loading a checkpoint
// written with a different version fails rather than guessing.
const CheckpointVersion = 1

// ErrCheckpointVersion marks a checkpoint written by an incompatible
// release.
var ErrCheckpointVersion = errors.New("unsupported checkpoint version")

// Checkpoint is the resumable state of a partially processed batch. It
// records only rows that finished, never rows cut short by shutdown.
type Checkpoint struct {
	Version        int            `json:"version"`
	BatchID        string         `json:"batch_id"`
	CompletedRanks []int          `json:"completed_ranks"`
	Results        []RowResult    `json:"results"`
	TokenTotals    provider.Usage `json:"token_totals"`
	SavedAt        time.Time      `json:"saved_at"`
}

func (c *Checkpoint) record(res RowResult, usage provider.Usage) {
	c.CompletedRanks = append(c.CompletedRanks, res.Rank)
	c.Results = append(c.Results, res)
	c.TokenTotals.Add(usage)
}

func (c *Checkpoint) completed() map[int]bool {
	m := make(map[int]bool, len(c.CompletedRanks))
	for _, r := range c.CompletedRanks {
		m[r] = true
	}
	return m
}

// EncodeCheckpoint serializes cp with the current version stamp.
func EncodeCheckpoint(cp *Checkpoint) ([]byte, error) {
	cp.Version = CheckpointVersion
	cp.SavedAt = time.Now().UTC()
	return json.Marshal(cp)
}

// DecodeCheckpoint parses data, rejecting incompatible versions.
// Unknown fields are tolerated so older releases can read forward-
// compatible additions.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp.Version != CheckpointVersion {
		return nil, fmt.Errorf("%w: %d", ErrCheckpointVersion, cp.Version)
	}
	return &cp, nil
}

// Analyzer evaluates a single answer. Implemented by analyze.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, question, answer string, citations map[int]string, mode analyze.Mode) ([]analyze.Verdict, provider.Usage, error)
}

// CheckpointStore persists batch progress. Load returns (nil, nil)
// when no checkpoint exists for the id.
type CheckpointStore interface {
	Load(ctx context.Context, batchID string) (*Checkpoint, error)
	Save(ctx context.Context, batchID string, cp *Checkpoint) error
}
