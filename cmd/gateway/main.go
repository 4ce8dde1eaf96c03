package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/app"
	"github.com/hai0823/AIQualityKit/internal/batch"
	"github.com/hai0823/AIQualityKit/internal/httputil"
	"github.com/hai0823/AIQualityKit/internal/provider"
	"github.com/hai0823/AIQualityKit/internal/queue"
	"github.com/hai0823/AIQualityKit/internal/segment"
	"github.com/hai0823/AIQualityKit/internal/store"
)

type createBatchRequest struct {
	BatchID   string          `json:"batch_id"`
	Mode      string          `json:"mode" validate:"required"`
	Execution string          `json:"execution"`
	Rows      []batch.Row     `json:"rows" validate:"required,min=1"`
	Provider  provider.Config `json:"provider" validate:"required"`
}

type segmentRequest struct {
	Answer    string `json:"answer" validate:"required"`
	CitedOnly bool   `json:"cited_only"`
}

func main() {
	deps, err := app.Build("gateway")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/batches", createBatchHandler(deps))
	r.Get("/api/batches/{id}", getBatchHandler(deps))
	r.Get("/api/batches/{id}/progress", progressHandler(deps))
	r.Post("/api/segment", segmentHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func createBatchHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(req); err != nil {
			httputil.Fail(deps.Log, w, httputil.ValidationError(err), err, http.StatusBadRequest)
			return
		}

		mode, err := analyze.ParseMode(req.Mode)
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		if req.Execution == "" {
			req.Execution = string(batch.ExecConcurrent)
		}
		exec, err := batch.ParseExecution(req.Execution)
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		if req.Provider.APIKey == "" {
			req.Provider.APIKey = deps.Config.APIKeyFor(req.Provider.Provider)
		}
		if req.Provider.APIKey == "" {
			httputil.Fail(deps.Log, w, "no API key for provider "+req.Provider.Provider, nil, http.StatusBadRequest)
			return
		}

		// Assign ranks for rows that came without one.
		for i := range req.Rows {
			if req.Rows[i].Rank == 0 {
				req.Rows[i].Rank = i + 1
			}
		}

		batchID := req.BatchID
		if batchID == "" {
			batchID = uuid.NewString()
		}

		b, err := deps.Store.CreateBatch(ctx, store.Batch{
			ID:        batchID,
			Mode:      string(mode),
			Execution: string(exec),
			TotalRows: len(req.Rows),
		})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist batch", err, http.StatusInternalServerError)
			return
		}

		task, err := queue.NewRunBatchTask(queue.RunBatchPayload{
			BatchID:   batchID,
			Mode:      mode,
			Execution: exec,
			Rows:      req.Rows,
			Provider:  req.Provider,
		})
		if err != nil {
			failBatch(deps, r, w, "marshal payload failed", err, batchID)
			return
		}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			failBatch(deps, r, w, "failed to enqueue batch; please retry", err, batchID)
			return
		}

		deps.Log.Info("batch accepted",
			"batch_id", batchID,
			"mode", mode,
			"execution", exec,
			"rows", len(req.Rows),
			"provider", req.Provider)

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"batch_id": batchID,
			"status":   b.Status,
		})
	}
}

// failBatch marks the batch failed before answering, so clients
// polling its status see the outcome.
func failBatch(deps app.Deps, r *http.Request, w http.ResponseWriter, message string, err error, batchID string) {
	log := deps.Log.With("batch_id", batchID)
	if upErr := deps.Store.UpdateBatchStatus(r.Context(), batchID, store.StatusFailed, message); upErr != nil {
		log.Error("failed to mark batch failed", "err", upErr)
	}
	httputil.Fail(log, w, message, err, http.StatusInternalServerError)
}

func getBatchHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b, err := deps.Store.GetBatch(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrBatchNotFound) {
				httputil.Fail(deps.Log, w, "batch not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load batch", err, http.StatusInternalServerError)
			return
		}

		resp := map[string]any{
			"batch_id":   b.ID,
			"mode":       b.Mode,
			"execution":  b.Execution,
			"status":     b.Status,
			"total_rows": b.TotalRows,
			"created_at": b.CreatedAt,
			"updated_at": b.UpdatedAt,
		}
		if b.Error != "" {
			resp["error"] = b.Error
		}
		if b.Status == store.StatusCompleted {
			report, err := deps.Store.GetReport(r.Context(), id)
			if err == nil {
				resp["report"] = report
			} else if !errors.Is(err, store.ErrReportNotFound) {
				deps.Log.Error("failed to load report", "batch_id", id, "err", err)
			}
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func progressHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b, err := deps.Store.GetBatch(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrBatchNotFound) {
				httputil.Fail(deps.Log, w, "batch not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to load batch", err, http.StatusInternalServerError)
			return
		}

		completed := 0
		cp, err := deps.Checkpoints.Load(r.Context(), id)
		if err != nil {
			deps.Log.Warn("failed to load checkpoint", "batch_id", id, "err", err)
		} else if cp != nil {
			completed = len(cp.CompletedRanks)
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"batch_id":       id,
			"status":         b.Status,
			"total_rows":     b.TotalRows,
			"completed_rows": completed,
		})
	}
}

func segmentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req segmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(req); err != nil {
			httputil.Fail(deps.Log, w, httputil.ValidationError(err), err, http.StatusBadRequest)
			return
		}

		segs := segment.Split(req.Answer)
		if req.CitedOnly {
			segs = segment.Cited(segs)
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"segments": segs,
			"count":    len(segs),
		})
	}
}
