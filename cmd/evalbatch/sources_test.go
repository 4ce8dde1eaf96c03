package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hai0823/AIQualityKit/internal/analyze"
)

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.txt"), []byte("first source"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.txt"), []byte("second source"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.txt"), []byte("ignored too"), 0o644))

	sources, err := LoadSources(dir)
	require.NoError(t, err)

	assert.Len(t, sources, 2)
	assert.Equal(t, "first source", sources[1])
	assert.Equal(t, "second source", sources[2])
}

func TestLoadSourcesMissingDir(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadRowsAssignsRanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"question": "q1", "answer": "a1"},
		{"question": "q2", "answer": "a2", "rank": 7},
		{"question": "q3", "answer": "a3"}
	]`), 0o644))

	rows, err := loadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 7, rows[1].Rank)
	assert.Equal(t, 3, rows[2].Rank)
}

func TestLoadRowsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := loadRows(path)
	assert.Error(t, err)
}

func TestDefaultBatchID(t *testing.T) {
	id := defaultBatchID("/data/eval/run42.json", analyze.ModeSliced)
	assert.Equal(t, "run42-sliced", id)
}
