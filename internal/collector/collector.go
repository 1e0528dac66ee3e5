// Package collector drives a full Bankin collection run: authenticate, list
// accounts, then list each account's transactions and assemble the report.
package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/bankin-collector/internal/bankin"
	"github.com/Checker-Finance/bankin-collector/internal/metrics"
	"github.com/Checker-Finance/bankin-collector/internal/pagination"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

// Stage is the progress of a run.
type Stage int32

const (
	NotStarted Stage = iota
	Authenticating
	FetchingAccounts
	FetchingTransactions
	Assembled
)

func (s Stage) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Authenticating:
		return "authenticating"
	case FetchingAccounts:
		return "fetching_accounts"
	case FetchingTransactions:
		return "fetching_transactions"
	case Assembled:
		return "assembled"
	default:
		return fmt.Sprintf("stage(%d)", int32(s))
	}
}

// Authenticator obtains an access token for a set of credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, creds bankin.Credentials) (bankin.Token, error)
}

// API binds an access token to the two listings a run walks.
type API interface {
	Accounts(token bankin.Token) pagination.FetchFunc[model.Account]
	Transactions(token bankin.Token) pagination.FetchFunc[model.Transaction]
}

// Option configures a Collector.
type Option func(*Collector)

// WithConcurrency sets how many accounts have their transactions fetched at once.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithMaxPages bounds every listing walk. Zero disables the bound.
func WithMaxPages(n int) Option {
	return func(c *Collector) { c.maxPages = n }
}

// Collector runs collections against the Bankin API.
type Collector struct {
	logger      *zap.Logger
	auth        Authenticator
	api         API
	concurrency int
	maxPages    int
	stage       atomic.Int32
}

// New creates a Collector. Transactions are fetched sequentially unless
// WithConcurrency says otherwise.
func New(logger *zap.Logger, auth Authenticator, api API, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger:      logger,
		auth:        auth,
		api:         api,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stage returns the stage reached by the current or last run.
func (c *Collector) Stage() Stage {
	return Stage(c.stage.Load())
}

func (c *Collector) setStage(s Stage) {
	c.stage.Store(int32(s))
	c.logger.Debug("collector.stage", zap.Stringer("stage", s))
}

// accountSlot holds the outcome of one account's transaction walk.
type accountSlot struct {
	txs        []model.Transaction
	pages      int
	duplicates int
	failed     bool
}

// Run authenticates with creds and collects every account with its transactions.
//
// Authentication and account listing failures abort the run. A failed
// transaction walk leaves that account with no transactions and the run goes
// on, unless ctx itself was cancelled.
func (c *Collector) Run(ctx context.Context, creds bankin.Credentials) (*model.RunResult, error) {
	start := time.Now()
	summary := model.RunSummary{
		RunID:          uuid.New(),
		StartedAt:      start.UTC(),
		FailedAccounts: []string{},
	}
	log := c.logger.With(zap.String("run_id", summary.RunID.String()))

	report, err := c.run(ctx, log, creds, &summary)
	if err != nil {
		metrics.ObserveDuration(metrics.RunDuration, start, "failure")
		log.Error("collector.run_failed",
			zap.Stringer("stage", c.Stage()),
			zap.Error(err))
		return nil, err
	}

	summary.Duration = time.Since(start)
	summary.Accounts = len(report)
	summary.Transactions = report.TransactionCount()
	metrics.ObserveDuration(metrics.RunDuration, start, "success")

	log.Info("collector.run_complete",
		zap.Int("accounts", summary.Accounts),
		zap.Int("transactions", summary.Transactions),
		zap.Int("pages", summary.Pages),
		zap.Int("duplicates", summary.Duplicates),
		zap.Strings("failed_accounts", summary.FailedAccounts),
		zap.Duration("duration", summary.Duration))

	return &model.RunResult{Report: report, Summary: summary}, nil
}

func (c *Collector) run(ctx context.Context, log *zap.Logger, creds bankin.Credentials, summary *model.RunSummary) (model.Report, error) {
	c.setStage(Authenticating)
	token, err := c.auth.Authenticate(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	c.setStage(FetchingAccounts)
	accounts, err := pagination.New(c.api.Accounts(token), model.AccountKey,
		pagination.WithResource("accounts"),
		pagination.WithMaxPages(c.maxPages),
		pagination.WithLogger(log),
	).FetchAll(ctx, bankin.AccountsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}
	summary.Pages += accounts.Pages()
	summary.Duplicates += accounts.Duplicates()
	log.Info("collector.accounts_fetched",
		zap.Int("accounts", accounts.Len()),
		zap.Int("pages", accounts.Pages()),
		zap.Int("duplicates", accounts.Duplicates()))

	c.setStage(FetchingTransactions)
	list := accounts.Items()
	slots, err := c.fetchTransactions(ctx, log, token, list)
	if err != nil {
		return nil, err
	}

	report := make(model.Report, 0, len(list))
	for i, acc := range list {
		slot := slots[i]
		summary.Pages += slot.pages
		summary.Duplicates += slot.duplicates
		if slot.failed {
			summary.FailedAccounts = append(summary.FailedAccounts, acc.AccNumber)
		}
		report = append(report, model.NewAccountReport(acc, slot.txs))
	}

	c.setStage(Assembled)
	return report, nil
}

// fetchTransactions walks every account's transactions into a slot at the
// account's index. Only cancellation of ctx makes it return an error.
func (c *Collector) fetchTransactions(ctx context.Context, log *zap.Logger, token bankin.Token, accounts []model.Account) ([]accountSlot, error) {
	slots := make([]accountSlot, len(accounts))
	fetch := c.api.Transactions(token)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, acc := range accounts {
		g.Go(func() error {
			txs, err := pagination.New(fetch, model.TransactionKey,
				pagination.WithResource("transactions"),
				pagination.WithMaxPages(c.maxPages),
				pagination.WithLogger(log),
			).FetchAll(gctx, bankin.TransactionsPath(acc.AccNumber))
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				metrics.IncIsolatedFailure()
				log.Warn("collector.transactions_failed",
					zap.String("acc_number", acc.AccNumber),
					zap.Error(err))
				slots[i] = accountSlot{failed: true}
				return nil
			}

			slots[i] = accountSlot{
				txs:        txs.Items(),
				pages:      txs.Pages(),
				duplicates: txs.Duplicates(),
			}
			log.Debug("collector.transactions_fetched",
				zap.String("acc_number", acc.AccNumber),
				zap.Int("transactions", txs.Len()))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	return slots, nil
}
