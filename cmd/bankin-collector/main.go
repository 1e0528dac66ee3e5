package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/bankin"
	"github.com/Checker-Finance/bankin-collector/internal/collector"
	"github.com/Checker-Finance/bankin-collector/internal/metrics"
	"github.com/Checker-Finance/bankin-collector/internal/publisher"
	"github.com/Checker-Finance/bankin-collector/internal/report"
	intsecrets "github.com/Checker-Finance/bankin-collector/internal/secrets"
	"github.com/Checker-Finance/bankin-collector/internal/store"
	"github.com/Checker-Finance/bankin-collector/pkg/config"
	"github.com/Checker-Finance/bankin-collector/pkg/logger"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
	pkgsecrets "github.com/Checker-Finance/bankin-collector/pkg/secrets"
	"github.com/Checker-Finance/bankin-collector/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [bankin-collector]...")

	err := run(ctx, cfg)

	// --- Push run metrics regardless of outcome ---
	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if perr := metrics.Push(pushCtx, cfg.PushgatewayURL, cfg.ServiceName); perr != nil {
			logg.Warnw("metrics.push_failed", "gateway", cfg.PushgatewayURL, "error", perr)
		}
		cancel()
	}

	stop()
	if err != nil {
		logg.Errorw("[bankin-collector] failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
	logg.Info("[bankin-collector] done")
	logger.Sync()
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logg := logger.L()

	clientCfg := bankin.ClientConfig{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
	creds := bankin.Credentials{Username: cfg.Username, Password: cfg.Password}

	// --- Credentials from AWS Secrets Manager ---
	if cfg.SecretName != "" {
		awsProvider, err := pkgsecrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			return fmt.Errorf("init AWS provider: %w", err)
		}
		resolver := intsecrets.NewResolver[intsecrets.BankinSecret](logg, awsProvider)
		secret, err := resolver.Resolve(ctx, cfg.SecretName, intsecrets.ParseBankinSecret(clientCfg))
		if err != nil {
			return err
		}
		clientCfg, creds = secret.Client, secret.Credentials
	}

	// --- Bankin API ---
	auth := bankin.NewAuthenticator(logg, clientCfg, cfg.HTTPTimeout)
	api := bankin.NewClient(logg, clientCfg, &http.Client{Timeout: cfg.HTTPTimeout}, cfg.RetryMax)

	c := collector.New(logg, auth, api,
		collector.WithConcurrency(cfg.Concurrency),
		collector.WithMaxPages(cfg.MaxPages),
	)

	logg.Info("collector.starting",
		zap.String("api_url", clientCfg.BaseURL),
		zap.String("user", creds.Username),
		zap.Int("concurrency", cfg.Concurrency))

	res, err := c.Run(ctx, creds)
	if err != nil {
		return err
	}

	// --- Report file ---
	if err := report.WriteFile(cfg.OutputPath, res.Report); err != nil {
		return fmt.Errorf("write %s: %w", cfg.OutputPath, err)
	}
	logg.Info("report.written",
		zap.String("path", cfg.OutputPath),
		zap.Int("accounts", len(res.Report)))

	deliver(ctx, cfg, logg, res)
	return nil
}

// deliver hands the result to the optional sinks. Their failures are logged only.
func deliver(ctx context.Context, cfg *config.Config, logg *zap.Logger, res *model.RunResult) {
	// --- Store (Redis + Postgres hybrid) ---
	if cfg.RedisAddr != "" || cfg.DatabaseURL != "" {
		logg.Info("store.connecting",
			zap.String("redis", cfg.RedisAddr),
			zap.String("dsn", utils.MaskDSN(cfg.DatabaseURL)))
		st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{}, cfg.ReportTTL, logg)
		if err != nil {
			metrics.IncSinkError("store")
			logg.Error("store.init_failed", zap.Error(err))
		} else {
			persist(ctx, st, logg, res)
		}
	}

	// --- Publisher ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			metrics.IncSinkError("nats")
			logg.Error("nats.connect_failed", zap.Error(err))
			return
		}

		pub, err := publisher.New(nc, cfg.ReportSubject, cfg.ServiceName, logg)
		if err != nil {
			nc.Close()
			metrics.IncSinkError("nats")
			logg.Error("publisher.init_failed", zap.Error(err))
			return
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logg.Warn("publisher.close_failed", zap.Error(err))
			}
		}()
		if err := pub.PublishReportCollected(ctx, res); err != nil {
			metrics.IncSinkError("nats")
		}
	}
}

// persist saves res to st after checking its backends are reachable, then closes st.
func persist(ctx context.Context, st store.Store, logg *zap.Logger, res *model.RunResult) {
	defer func() { _ = st.Close() }()

	if err := st.HealthCheck(ctx); err != nil {
		metrics.IncSinkError("store")
		logg.Error("store.unhealthy", zap.Error(err))
		return
	}

	if prev, err := st.LatestReport(ctx); err != nil {
		logg.Debug("store.previous_unavailable", zap.Error(err))
	} else if prev != nil {
		logg.Info("store.previous_run",
			zap.String("run_id", prev.Summary.RunID.String()),
			zap.Int("accounts", prev.Summary.Accounts),
			zap.Int("transactions", prev.Summary.Transactions))
	}

	if err := st.SaveReport(ctx, res); err != nil {
		logg.Warn("store.save_failed", zap.Error(err))
		return
	}
	logg.Info("store.saved", zap.String("key", store.RunKey(res)))
}
