// Package checkpoint provides the persistence backends for batch
// progress: local files, Redis and an in-memory store for tests.
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hai0823/AIQualityKit/internal/batch"
)

// FileStore keeps one JSON file per batch under a directory. Saves are
// atomic: the data lands in a temp file first and is renamed over the
// old checkpoint.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(batchID string) string {
	return filepath.Join(s.dir, sanitize(batchID)+".json")
}

func (s *FileStore) Load(_ context.Context, batchID string) (*batch.Checkpoint, error) {
	raw, err := os.ReadFile(s.path(batchID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return batch.DecodeCheckpoint(raw)
}

func (s *FileStore) Save(_ context.Context, batchID string, cp *batch.Checkpoint) error {
	raw, err := batch.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}
	dest := s.path(batchID)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// sanitize keeps batch ids filesystem-safe.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
