package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hai0823/AIQualityKit/internal/provider"
)

func TestCheckpointRoundTrip(t *testing.T) {
	cp := &Checkpoint{BatchID: "b1"}
	cp.record(RowResult{Rank: 3, APISuccess: true}, provider.Usage{InputTokens: 5, OutputTokens: 2})
	cp.record(RowResult{Rank: 1, APISuccess: false, Error: "boom"}, provider.Usage{InputTokens: 1})

	raw, err := EncodeCheckpoint(cp)
	require.NoError(t, err)

	got, err := DecodeCheckpoint(raw)
	require.NoError(t, err)
	assert.Equal(t, "b1", got.BatchID)
	assert.Equal(t, []int{3, 1}, got.CompletedRanks)
	assert.Len(t, got.Results, 2)
	assert.Equal(t, int64(8), got.TokenTotals.TotalTokens())
	assert.False(t, got.SavedAt.IsZero())
}

func TestDecodeCheckpointRejectsVersion(t *testing.T) {
	_, err := DecodeCheckpoint([]byte(`{"version": 2, "batch_id": "b"}`))
	assert.ErrorIs(t, err, ErrCheckpointVersion)

	_, err = DecodeCheckpoint([]byte(`{"batch_id": "no-version"}`))
	assert.ErrorIs(t, err, ErrCheckpointVersion)
}

func TestDecodeCheckpointToleratesUnknownFields(t *testing.T) {
	raw := []byte(`{"version": 1, "batch_id": "b", "completed_ranks": [1], "results": [], "future_field": {"x": 1}}`)
	cp, err := DecodeCheckpoint(raw)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, cp.CompletedRanks)
}

func TestDecodeCheckpointBadJSON(t *testing.T) {
	_, err := DecodeCheckpoint([]byte("not json"))
	assert.Error(t, err)
}
