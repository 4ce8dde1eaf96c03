package checkpoint

import (
	"context"
	"sync"

	"github.com/hai0823/AIQualityKit/internal/batch"
)

// MemoryStore holds checkpoints in process memory. Progress is lost on
// restart, which is fine for tests and one-shot local runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, batchID string) (*batch.Checkpoint, error) {
	s.mu.Lock()
	raw, ok := s.data[batchID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return batch.DecodeCheckpoint(raw)
}

func (s *MemoryStore) Save(_ context.Context, batchID string, cp *batch.Checkpoint) error {
	raw, err := batch.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[batchID] = raw
	s.mu.Unlock()
	return nil
}
