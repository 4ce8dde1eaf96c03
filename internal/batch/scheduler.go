package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hai0823/AIQualityKit/internal/analyze"
	"github.com/hai0823/AIQualityKit/internal/provider"
)

// Execution selects sequential or concurrent row processing.
type Execution string

const (
	ExecSequential Execution = "sequential"
	ExecConcurrent Execution = "concurrent"
)

// ParseExecution normalizes user-facing execution names.
func ParseExecution(s string) (Execution, error) {
	switch s {
	case "sequential", "serial", "sync":
		return ExecSequential, nil
	case "concurrent", "parallel", "async":
		return ExecConcurrent, nil
	default:
		return "", fmt.Errorf("unknown execution mode: %q", s)
	}
}

// ErrNoRows is returned when a batch has nothing to process.
var ErrNoRows = errors.New("batch has no rows")

// Options tune the scheduler. Zero values take defaults.
type Options struct {
	Workers   int // concurrent row workers, default 8
	SaveEvery int // checkpoint cadence in completed rows, default 5
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.SaveEvery <= 0 {
		o.SaveEvery = 5
	}
	return o
}

// Scheduler drives a batch of rows through an Analyzer, checkpointing
// progress so an interrupted batch can resume where it stopped.
type Scheduler struct {
	analyzer Analyzer
	ckpts    CheckpointStore
	log      *slog.Logger
	opts     Options
}

func NewScheduler(a Analyzer, ckpts CheckpointStore, log *slog.Logger, opts Options) *Scheduler {
	return &Scheduler{analyzer: a, ckpts: ckpts, log: log, opts: opts.withDefaults()}
}

// rowOutcome carries a finished row from a worker to the collector.
// skip marks rows cut short by cancellation, which must not be
// recorded as completed. fatal carries an error that aborts the batch.
type rowOutcome struct {
	result RowResult
	usage  provider.Usage
	fatal  error
	skip   bool
}

// Run processes rows in rank order, resuming from any existing
// checkpoint for batchID. On an authentication failure the whole batch
// aborts with no report. On context cancellation the partial report is
// returned together with the context's error.
func (s *Scheduler) Run(ctx context.Context, batchID string, rows []Row, mode analyze.Mode, exec Execution) (Report, error) {
	if len(rows) == 0 {
		return Report{}, ErrNoRows
	}
	switch exec {
	case ExecSequential, ExecConcurrent:
	default:
		return Report{}, fmt.Errorf("unknown execution mode: %q", exec)
	}

	cp, err := s.ckpts.Load(ctx, batchID)
	if err != nil {
		return Report{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		cp = &Checkpoint{BatchID: batchID}
	} else if len(cp.CompletedRanks) > 0 {
		s.log.Info("resuming batch from checkpoint",
			"batch_id", batchID,
			"completed_rows", len(cp.CompletedRanks))
	}

	done := cp.completed()
	pending := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !done[row.Rank] {
			pending = append(pending, row)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Rank < pending[j].Rank })

	var runErr error
	if exec == ExecConcurrent {
		runErr = s.runConcurrent(ctx, batchID, pending, mode, cp)
	} else {
		runErr = s.runSequential(ctx, batchID, pending, mode, cp)
	}

	// The final save must go through even when the run was cancelled.
	if err := s.ckpts.Save(context.WithoutCancel(ctx), batchID, cp); err != nil {
		s.log.Error("final checkpoint save failed", "batch_id", batchID, "err", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return Report{}, runErr
	}
	report := Aggregate(batchID, string(mode), len(rows), cp)
	return report, runErr
}

func (s *Scheduler) runSequential(ctx context.Context, batchID string, pending []Row, mode analyze.Mode, cp *Checkpoint) error {
	sinceSave := 0
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := s.runRow(ctx, row, mode)
		if out.fatal != nil {
			return out.fatal
		}
		if out.skip {
			return ctx.Err()
		}
		cp.record(out.result, out.usage)
		sinceSave++
		if sinceSave >= s.opts.SaveEvery {
			s.save(ctx, batchID, cp)
			sinceSave = 0
		}
	}
	return nil
}

func (s *Scheduler) runConcurrent(ctx context.Context, batchID string, pending []Row, mode analyze.Mode, cp *Checkpoint) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan Row)
	outs := make(chan rowOutcome)

	g, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error {
			for row := range jobs {
				outs <- s.runRow(workerCtx, row, mode)
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, row := range pending {
			select {
			case jobs <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		g.Wait()
		close(outs)
	}()

	// The collector is the only goroutine touching the checkpoint. It
	// keeps draining after a fatal error so the workers can exit.
	var fatal error
	sinceSave := 0
	for out := range outs {
		if out.fatal != nil {
			if fatal == nil {
				fatal = out.fatal
				cancel()
			}
			continue
		}
		if out.skip {
			continue
		}
		cp.record(out.result, out.usage)
		sinceSave++
		if sinceSave >= s.opts.SaveEvery {
			s.save(ctx, batchID, cp)
			sinceSave = 0
		}
	}

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}

func (s *Scheduler) runRow(ctx context.Context, row Row, mode analyze.Mode) rowOutcome {
	verdicts, usage, err := s.analyzer.Analyze(ctx, row.Question, row.Answer, row.Citations, mode)
	if err != nil {
		if provider.KindOf(err) == provider.KindAuth {
			return rowOutcome{fatal: fmt.Errorf("rank %d: %w", row.Rank, err)}
		}
		if ctx.Err() != nil {
			// The row was cut short by shutdown, not by the backend.
			// Leave it unrecorded so a resume picks it up again.
			return rowOutcome{skip: true}
		}
		s.log.Warn("row failed", "rank", row.Rank, "err", err)
		return rowOutcome{
			result: RowResult{Rank: row.Rank, APISuccess: false, Error: err.Error()},
			usage:  usage,
		}
	}
	return rowOutcome{
		result: RowResult{Rank: row.Rank, APISuccess: true, Verdicts: verdicts},
		usage:  usage,
	}
}

func (s *Scheduler) save(ctx context.Context, batchID string, cp *Checkpoint) {
	if err := s.ckpts.Save(ctx, batchID, cp); err != nil {
		s.log.Error("checkpoint save failed", "batch_id", batchID, "err", err)
	}
}
