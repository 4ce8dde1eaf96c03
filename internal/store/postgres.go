package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/hai0823/AIQualityKit/internal/batch"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Use advisory lock to prevent concurrent migrations from multiple services.
	// Note: In production, use dedicated migration tools (e.g., golang-migrate/migrate)
	// that run as a separate deployment step before app services start.
	const lockID = 987654321 // arbitrary number for this application's migration lock

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	// Ensure lock is released when done
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			mode TEXT,
			execution TEXT,
			status TEXT,
			total_rows INT,
			error TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			batch_id TEXT PRIMARY KEY REFERENCES batches(id) ON DELETE CASCADE,
			mode TEXT,
			total_rows INT,
			success_count INT,
			failed_count INT,
			input_tokens BIGINT,
			output_tokens BIGINT,
			tokens_estimated BOOLEAN,
			results JSONB,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			batch_id TEXT PRIMARY KEY,
			version INT,
			completed_ranks BIGINT[],
			data JSONB,
			saved_at TIMESTAMPTZ DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, b Batch) (Batch, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches(id, mode, execution, status, total_rows) VALUES($1,$2,$3,$4,$5)`,
		b.ID, b.Mode, b.Execution, StatusPending, b.TotalRows)
	if err != nil {
		return Batch{}, err
	}
	b.Status = StatusPending
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, id string) (Batch, error) {
	var b Batch
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, execution, status, total_rows, error, created_at, updated_at FROM batches WHERE id=$1`, id)
	if err := row.Scan(&b.ID, &b.Mode, &b.Execution, &b.Status, &b.TotalRows, &b.Error, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, ErrBatchNotFound
		}
		return Batch{}, fmt.Errorf("failed to get batch %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) UpdateBatchStatus(ctx context.Context, id string, status BatchStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status=$1, error=$2, updated_at=now() WHERE id=$3`, status, errMsg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, report batch.Report) error {
	results, err := json.Marshal(report.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports(batch_id, mode, total_rows, success_count, failed_count, input_tokens, output_tokens, tokens_estimated, results)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (batch_id) DO UPDATE SET
			mode=excluded.mode,
			total_rows=excluded.total_rows,
			success_count=excluded.success_count,
			failed_count=excluded.failed_count,
			input_tokens=excluded.input_tokens,
			output_tokens=excluded.output_tokens,
			tokens_estimated=excluded.tokens_estimated,
			results=excluded.results`,
		report.BatchID, report.Mode, report.TotalRows, report.SuccessCount, report.FailedCount,
		report.TokenTotals.InputTokens, report.TokenTotals.OutputTokens, report.TokenTotals.Estimated, results)
	return err
}

func (s *PostgresStore) GetReport(ctx context.Context, batchID string) (batch.Report, error) {
	var report batch.Report
	var results []byte
	row := s.db.QueryRowContext(ctx, `
		SELECT batch_id, mode, total_rows, success_count, failed_count, input_tokens, output_tokens, tokens_estimated, results
		FROM reports WHERE batch_id=$1`, batchID)
	if err := row.Scan(&report.BatchID, &report.Mode, &report.TotalRows, &report.SuccessCount, &report.FailedCount,
		&report.TokenTotals.InputTokens, &report.TokenTotals.OutputTokens, &report.TokenTotals.Estimated, &results); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return batch.Report{}, ErrReportNotFound
		}
		return batch.Report{}, fmt.Errorf("failed to get report for batch %s: %w", batchID, err)
	}
	if err := json.Unmarshal(results, &report.Results); err != nil {
		return batch.Report{}, fmt.Errorf("unmarshal results: %w", err)
	}
	return report, nil
}

// Load implements batch.CheckpointStore on top of the checkpoints
// table, so runners backed by Postgres need no extra infrastructure.
func (s *PostgresStore) Load(ctx context.Context, batchID string) (*batch.Checkpoint, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT data FROM checkpoints WHERE batch_id=$1`, batchID)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint for batch %s: %w", batchID, err)
	}
	return batch.DecodeCheckpoint(data)
}

// Save implements batch.CheckpointStore.
func (s *PostgresStore) Save(ctx context.Context, batchID string, cp *batch.Checkpoint) error {
	data, err := batch.EncodeCheckpoint(cp)
	if err != nil {
		return err
	}
	ranks := make([]int64, len(cp.CompletedRanks))
	for i, r := range cp.CompletedRanks {
		ranks[i] = int64(r)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints(batch_id, version, completed_ranks, data, saved_at)
		VALUES($1,$2,$3,$4,now())
		ON CONFLICT (batch_id) DO UPDATE SET
			version=excluded.version,
			completed_ranks=excluded.completed_ranks,
			data=excluded.data,
			saved_at=now()`,
		batchID, cp.Version, pq.Array(ranks), data)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
