package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/app"
	"github.com/hai0823/AIQualityKit/internal/batch"
	"github.com/hai0823/AIQualityKit/internal/httputil"
	"github.com/hai0823/AIQualityKit/internal/provider"
	"github.com/hai0823/AIQualityKit/internal/queue"
	"github.com/hai0823/AIQualityKit/internal/store"
)

func main() {
	deps, err := app.Build("runner")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("batch runner starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeRunBatch, func(ctx context.Context, task queue.Task) error {
			var payload queue.RunBatchPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return handleRunBatch(ctx, deps, payload)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port)
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil {
		deps.Log.Error("runner stopped", "err", err)
	}
}

func handleRunBatch(ctx context.Context, deps app.Deps, payload queue.RunBatchPayload) error {
	log := deps.Log.With("batch_id", payload.BatchID)

	if payload.Provider.APIKey == "" {
		payload.Provider.APIKey = deps.Config.APIKeyFor(payload.Provider.Provider)
	}
	caller, err := provider.New(payload.Provider)
	if err != nil {
		return markFailed(ctx, deps, payload.BatchID, err)
	}
	caller = provider.WithRetry(caller, provider.Policy{
		MaxAttempts: deps.Config.MaxAttempts,
		CallTimeout: deps.Config.CallTimeout,
	}, log)

	if err := deps.Store.UpdateBatchStatus(ctx, payload.BatchID, store.StatusRunning, ""); err != nil {
		log.Warn("failed to mark batch running", "err", err)
	}

	analyzer := analyze.New(caller, log)
	scheduler := batch.NewScheduler(analyzer, deps.Checkpoints, log, batch.Options{
		Workers:   deps.Config.Workers,
		SaveEvery: deps.Config.SaveEvery,
	})

	report, err := scheduler.Run(ctx, payload.BatchID, payload.Rows, payload.Mode, payload.Execution)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Shutdown mid-batch. The checkpoint holds the progress, a
			// re-delivered task resumes from it.
			log.Info("batch interrupted, progress checkpointed",
				"completed_rows", len(report.Results))
			return err
		}
		return markFailed(ctx, deps, payload.BatchID, err)
	}

	if err := deps.Store.SaveReport(ctx, report); err != nil {
		return markFailed(ctx, deps, payload.BatchID, fmt.Errorf("save report: %w", err))
	}
	if err := deps.Store.UpdateBatchStatus(ctx, payload.BatchID, store.StatusCompleted, ""); err != nil {
		log.Warn("failed to mark batch completed", "err", err)
	}
	notifyCompletion(ctx, deps, report)

	log.Info("batch finished",
		"total_rows", report.TotalRows,
		"success", report.SuccessCount,
		"failed", report.FailedCount,
		"tokens", report.TokenTotals.TotalTokens(),
		"tokens_estimated", report.TokenTotals.Estimated)
	return nil
}

// notifyCompletion publishes a best-effort done event for anything
// subscribed to batch outcomes.
func notifyCompletion(ctx context.Context, deps app.Deps, report batch.Report) {
	task, err := queue.NewBatchDoneTask(queue.BatchDonePayload{
		BatchID:      report.BatchID,
		SuccessCount: report.SuccessCount,
		FailedCount:  report.FailedCount,
	})
	if err != nil {
		return
	}
	if err := deps.Queue.Enqueue(ctx, task); err != nil {
		deps.Log.Warn("failed to publish completion event", "batch_id", report.BatchID, "err", err)
	}
}

// markFailed records the failure on the batch, then reports the
// original error to the queue so its retry policy applies.
func markFailed(ctx context.Context, deps app.Deps, batchID string, err error) error {
	if upErr := deps.Store.UpdateBatchStatus(ctx, batchID, store.StatusFailed, err.Error()); upErr != nil {
		deps.Log.Error("failed to mark batch failed", "batch_id", batchID, "err", upErr)
	}
	return err
}
