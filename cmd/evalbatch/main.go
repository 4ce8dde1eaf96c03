// Command evalbatch runs an evaluation batch from local files, without
// the gateway or the queue. Rows come from a JSON file, citation
// sources from a directory of numbered text or PDF files, and the
// report lands in a JSON file next to the checkpoint directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/batch"
	"github.com/hai0823/AIQualityKit/internal/checkpoint"
	"github.com/hai0823/AIQualityKit/internal/config"
	"github.com/hai0823/AIQualityKit/internal/logger"
	"github.com/hai0823/AIQualityKit/internal/provider"
)

func main() {
	var (
		rowsPath      = flag.String("rows", "", "path to a JSON file with the rows to evaluate (required)")
		mode          = flag.String("mode", "internal", "analysis mode: fulltext, sliced or internal")
		exec          = flag.String("exec", "concurrent", "execution: sequential or concurrent")
		workers       = flag.Int("workers", 0, "concurrent workers (default from WORKERS env)")
		providerID    = flag.String("provider", "", "LLM provider (default from LLM_PROVIDER env)")
		model         = flag.String("model", "", "model override")
		baseURL       = flag.String("base-url", "", "API base URL override")
		sourcesDir    = flag.String("sources", "", "directory of citation sources named <index>.txt or <index>.pdf")
		batchID       = flag.String("batch-id", "", "batch id (default derived from the rows filename)")
		checkpointDir = flag.String("checkpoint-dir", "", "checkpoint directory (default from CHECKPOINT_DIR env)")
		outPath       = flag.String("out", "", "report output path (default <batch-id>.report.json)")
		noResume      = flag.Bool("no-resume", false, "ignore an existing checkpoint and start over")
	)
	flag.Parse()

	if err := run(*rowsPath, *mode, *exec, *workers, *providerID, *model, *baseURL,
		*sourcesDir, *batchID, *checkpointDir, *outPath, *noResume); err != nil {
		fmt.Fprintln(os.Stderr, "evalbatch:", err)
		os.Exit(1)
	}
}

func run(rowsPath, modeName, execName string, workers int, providerID, model, baseURL,
	sourcesDir, batchID, checkpointDir, outPath string, noResume bool) error {

	if rowsPath == "" {
		return errors.New("-rows is required")
	}
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, "evalbatch")

	mode, err := analyze.ParseMode(modeName)
	if err != nil {
		return err
	}
	exec, err := batch.ParseExecution(execName)
	if err != nil {
		return err
	}

	rows, err := loadRows(rowsPath)
	if err != nil {
		return err
	}
	if sourcesDir != "" {
		sources, err := LoadSources(sourcesDir)
		if err != nil {
			return err
		}
		log.Info("loaded citation sources", "dir", sourcesDir, "count", len(sources))
		for i := range rows {
			if rows[i].Citations == nil {
				rows[i].Citations = sources
			}
		}
	}

	if providerID == "" {
		providerID = cfg.DefaultProvider
	}
	pcfg := provider.Config{
		Provider: providerID,
		APIKey:   cfg.APIKeyFor(providerID),
		Model:    model,
		BaseURL:  baseURL,
	}
	caller, err := provider.New(pcfg)
	if err != nil {
		return err
	}
	caller = provider.WithRetry(caller, provider.Policy{
		MaxAttempts: cfg.MaxAttempts,
		CallTimeout: cfg.CallTimeout,
	}, log)

	if batchID == "" {
		batchID = defaultBatchID(rowsPath, mode)
	}
	if checkpointDir == "" {
		checkpointDir = cfg.CheckpointDir
	}
	ckpts, err := checkpoint.NewFileStore(checkpointDir)
	if err != nil {
		return err
	}
	if noResume {
		if err := ckpts.Save(context.Background(), batchID, &batch.Checkpoint{BatchID: batchID}); err != nil {
			return fmt.Errorf("reset checkpoint: %w", err)
		}
	}
	if workers <= 0 {
		workers = cfg.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := batch.NewScheduler(analyze.New(caller, log), ckpts, log, batch.Options{
		Workers:   workers,
		SaveEvery: cfg.SaveEvery,
	})

	log.Info("starting batch",
		"batch_id", batchID,
		"rows", len(rows),
		"mode", mode,
		"execution", exec,
		"provider", pcfg)

	report, runErr := scheduler.Run(ctx, batchID, rows, mode, exec)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if outPath == "" {
		outPath = batchID + ".report.json"
	}
	if err := writeReport(outPath, report); err != nil {
		return err
	}

	log.Info("batch finished",
		"batch_id", batchID,
		"success", report.SuccessCount,
		"failed", report.FailedCount,
		"tokens", report.TokenTotals.TotalTokens(),
		"report", outPath)

	if runErr != nil {
		// Interrupted: the report covers completed rows only and the
		// checkpoint allows a later resume.
		return runErr
	}
	return nil
}

func loadRows(path string) ([]batch.Row, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var rows []batch.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	for i := range rows {
		if rows[i].Rank == 0 {
			rows[i].Rank = i + 1
		}
	}
	return rows, nil
}

func defaultBatchID(rowsPath string, mode analyze.Mode) string {
	base := filepath.Base(rowsPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "-" + string(mode)
}

func writeReport(path string, report batch.Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
