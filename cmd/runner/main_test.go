package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/app"
	"github.com/hai0823/AIQualityKit/internal/batch"
	"github.com/hai0823/AIQualityKit/internal/checkpoint"
	"github.com/hai0823/AIQualityKit/internal/config"
	"github.com/hai0823/AIQualityKit/internal/provider"
	"github.com/hai0823/AIQualityKit/internal/queue"
	"github.com/hai0823/AIQualityKit/internal/store"
)

func newTestDeps(st store.Store, q queue.Queue) app.Deps {
	return app.Deps{
		Store:       st,
		Queue:       q,
		Checkpoints: checkpoint.NewMemoryStore(),
		Config: config.Config{
			Workers:     2,
			SaveEvery:   2,
			MaxAttempts: 1,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// fakeBackend serves OpenAI-shaped chat completions with a fixed
// verdict reply.
func fakeBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleRunBatch(t *testing.T) {
	srv := fakeBackend(t, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant", "content": "{\"status\": \"no_issue\", \"reason\": \"clean\"}"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`)

	mockStore := new(store.MockStore)
	mockStore.On("UpdateBatchStatus", mock.Anything, "b1", store.StatusRunning, "").Return(nil).Once()
	mockStore.On("SaveReport", mock.Anything, mock.MatchedBy(func(r batch.Report) bool {
		return r.BatchID == "b1" && r.SuccessCount == 2 && r.FailedCount == 0
	})).Return(nil).Once()
	mockStore.On("UpdateBatchStatus", mock.Anything, "b1", store.StatusCompleted, "").Return(nil).Once()
	mockQueue := new(queue.MockQueue)
	mockQueue.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
		return task.Type == queue.TaskTypeBatchDone
	})).Return(nil).Once()

	deps := newTestDeps(mockStore, mockQueue)
	payload := queue.RunBatchPayload{
		BatchID:   "b1",
		Mode:      analyze.ModeInternal,
		Execution: batch.ExecSequential,
		Rows: []batch.Row{
			{Rank: 1, Question: "q1", Answer: "a1"},
			{Rank: 2, Question: "q2", Answer: "a2"},
		},
		Provider: provider.Config{Provider: "openai", APIKey: "test-key", BaseURL: srv.URL},
	}

	err := handleRunBatch(context.Background(), deps, payload)
	require.NoError(t, err)
	mockStore.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestHandleRunBatchAuthFailure(t *testing.T) {
	srv := fakeBackend(t, http.StatusUnauthorized, `{"error": {"message": "bad key"}}`)

	mockStore := new(store.MockStore)
	mockStore.On("UpdateBatchStatus", mock.Anything, "b2", store.StatusRunning, "").Return(nil).Once()
	mockStore.On("UpdateBatchStatus", mock.Anything, "b2", store.StatusFailed, mock.Anything).Return(nil).Once()

	deps := newTestDeps(mockStore, new(queue.MockQueue))
	payload := queue.RunBatchPayload{
		BatchID:   "b2",
		Mode:      analyze.ModeInternal,
		Execution: batch.ExecSequential,
		Rows:      []batch.Row{{Rank: 1, Question: "q", Answer: "a"}},
		Provider:  provider.Config{Provider: "openai", APIKey: "bad-key", BaseURL: srv.URL},
	}

	err := handleRunBatch(context.Background(), deps, payload)
	require.Error(t, err)
	require.Equal(t, provider.KindAuth, provider.KindOf(err))
	mockStore.AssertExpectations(t)
}

func TestHandleRunBatchBadProvider(t *testing.T) {
	mockStore := new(store.MockStore)
	mockStore.On("UpdateBatchStatus", mock.Anything, "b3", store.StatusFailed, mock.Anything).Return(nil).Once()

	deps := newTestDeps(mockStore, new(queue.MockQueue))
	payload := queue.RunBatchPayload{
		BatchID:   "b3",
		Mode:      analyze.ModeInternal,
		Execution: batch.ExecSequential,
		Rows:      []batch.Row{{Rank: 1, Question: "q", Answer: "a"}},
		Provider:  provider.Config{Provider: "carrier-pigeon", APIKey: "k"},
	}

	err := handleRunBatch(context.Background(), deps, payload)
	require.Error(t, err)
	mockStore.AssertExpectations(t)
}
