package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/metrics"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

const (
	keyPrefix = "bankin:report:"
	latestKey = keyPrefix + "latest"
)

var errRedisNotInitialized = errors.New("redis not initialized")

// Store defines the contract for caching and persisting collected reports.
type Store interface {
	SaveReport(ctx context.Context, res *model.RunResult) error
	LatestReport(ctx context.Context) (*model.RunResult, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

var _ Store = (*HybridStore)(nil)

// DBExecutor is the subset of pgxpool.Pool the store needs.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// HybridStore caches reports in Redis and records a snapshot row per run in
// Postgres. Either backend may be absent.
type HybridStore struct {
	redis  *redis.Client
	PG     DBExecutor
	ttl    time.Duration
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid connects to whichever of Redis and Postgres is configured.
// Cached reports expire after ttl; zero keeps them forever.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, ttl time.Duration, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	s := &HybridStore{ttl: ttl, logger: logger}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
			DB:   redisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		s.redis = rdb
	}

	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.PG = pool
	}

	return s, nil
}

// RunKey is the Redis key holding the report of one run.
func RunKey(res *model.RunResult) string {
	return keyPrefix + res.Summary.RunID.String()
}

// SaveReport writes res to every configured backend. A failing backend does
// not stop the others; their errors are joined.
func (s *HybridStore) SaveReport(ctx context.Context, res *model.RunResult) error {
	var errs []error

	if s.redis != nil {
		if err := s.cacheReport(ctx, res); err != nil {
			s.logger.Error("store.redis.save_failed", zap.Error(err))
			metrics.IncSinkError("redis")
			errs = append(errs, err)
		}
	}
	if s.PG != nil {
		if err := s.recordSnapshot(ctx, res); err != nil {
			s.logger.Error("store.pg.snapshot_insert_failed", zap.Error(err))
			metrics.IncSinkError("postgres")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *HybridStore) cacheReport(ctx context.Context, res *model.RunResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, RunKey(res), data, s.ttl)
		pipe.Set(ctx, latestKey, data, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// recordSnapshot inserts an immutable row into bankin.report_snapshot.
func (s *HybridStore) recordSnapshot(ctx context.Context, res *model.RunResult) error {
	report, err := json.Marshal(res.Report)
	if err != nil {
		return err
	}
	_, err = s.PG.Exec(ctx, `
		INSERT INTO bankin.report_snapshot (
			run_id, started_at, duration_ms,
			accounts, transactions, failed_accounts, report, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (run_id) DO NOTHING
	`, res.Summary.RunID, res.Summary.StartedAt, res.Summary.Duration.Milliseconds(),
		res.Summary.Accounts, res.Summary.Transactions, res.Summary.FailedAccounts, report)
	if err != nil {
		return fmt.Errorf("insert report snapshot: %w", err)
	}
	return nil
}

// LatestReport returns the most recently cached run, or nil when none is cached.
func (s *HybridStore) LatestReport(ctx context.Context) (*model.RunResult, error) {
	if s.redis == nil {
		return nil, errRedisNotInitialized
	}
	var res model.RunResult
	err := s.GetJSON(ctx, latestKey, &res)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetJSON decodes the cached value at key into dest. A missing key returns redis.Nil.
func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	if s.redis == nil {
		return errRedisNotInitialized
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil && s.PG == nil {
		return fmt.Errorf("no backend configured")
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
