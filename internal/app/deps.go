package app

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/hai0823/AIQualityKit/internal/batch"
	"github.com/hai0823/AIQualityKit/internal/checkpoint"
	"github.com/hai0823/AIQualityKit/internal/config"
	"github.com/hai0823/AIQualityKit/internal/logger"
	"github.com/hai0823/AIQualityKit/internal/queue"
	"github.com/hai0823/AIQualityKit/internal/store"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	Store       store.Store
	Queue       queue.Queue
	Checkpoints batch.CheckpointStore
}

// Build loads env, config, and shared components. service tags every
// log line so gateway and runner output can be told apart.
func Build(service string) (Deps, error) {
	// A .env file is a local development convenience, not a requirement.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, service)

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	ckpts, err := buildCheckpoints(cfg, log, st)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize checkpoint store: %w", err)
	}
	return Deps{
		Config:      cfg,
		Log:         log,
		Store:       st,
		Queue:       q,
		Checkpoints: ckpts,
	}, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid option: postgres)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

func buildCheckpoints(cfg config.Config, log *slog.Logger, st store.Store) (batch.CheckpointStore, error) {
	switch cfg.CheckpointProvider {
	case "file":
		fs, err := checkpoint.NewFileStore(cfg.CheckpointDir)
		if err != nil {
			return nil, err
		}
		log.Info("using file checkpoints", "dir", cfg.CheckpointDir)
		return fs, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when CHECKPOINT_PROVIDER=redis")
		}
		rs, err := checkpoint.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		log.Info("using Redis checkpoints", "addr", cfg.RedisAddr)
		return rs, nil
	case "postgres":
		pg, ok := st.(*store.PostgresStore)
		if !ok {
			return nil, fmt.Errorf("CHECKPOINT_PROVIDER=postgres requires STORE_PROVIDER=postgres")
		}
		log.Info("using Postgres checkpoints")
		return pg, nil
	case "memory":
		log.Info("using in-memory checkpoints; progress is lost on restart")
		return checkpoint.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("invalid CHECKPOINT_PROVIDER: %s (valid options: file, redis, postgres, memory)", cfg.CheckpointProvider)
	}
}
