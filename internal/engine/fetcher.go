package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/metrics"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
	"github.com/Priya8975/broadcast-review/internal/store"
)

// Source names used for breakers, limiters and metrics.
const (
	SourceSAM       = "sam"
	SourceMCB       = "mcb"
	SourceWarehouse = "warehouse"
)

// AllSources lists every upstream, in dashboard order.
var AllSources = []string{SourceSAM, SourceMCB, SourceWarehouse}

// PlatformReader is a billing platform holding subscribers and schedules.
type PlatformReader interface {
	ActiveUsers(ctx context.Context, country string, window domain.Window) ([]domain.ActiveUser, error)
	Schedules(ctx context.Context, country string, window domain.Window) ([]domain.Schedule, error)
}

// TransactionReader is the warehouse of per-user transaction counts.
type TransactionReader interface {
	TransactionsPerUser(ctx context.Context, country string, window domain.Window) ([]domain.Transaction, error)
}

// Sources are the upstreams of a run. A nil source is treated as empty.
type Sources struct {
	SAM       PlatformReader
	MCB       PlatformReader
	Warehouse TransactionReader
}

// FetcherOptions tune caching and throttling.
type FetcherOptions struct {
	CacheTTL  time.Duration
	RateLimit int
	// Refresh skips cache reads; fresh results are still cached.
	Refresh bool
}

// Fetcher assembles the inputs of one country. Every source read goes
// through the Redis cache, the source's circuit breaker and rate limiter.
// A source that fails contributes an empty table and a warning; FetchInputs
// itself never fails.
type Fetcher struct {
	sources Sources
	cache   *store.RedisStore
	breaker *CircuitBreaker
	limiter *RateLimiter
	metrics *metrics.Metrics
	opts    FetcherOptions
	logger  *slog.Logger
}

func NewFetcher(sources Sources, cache *store.RedisStore, breaker *CircuitBreaker, limiter *RateLimiter, m *metrics.Metrics, opts FetcherOptions, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		sources: sources,
		cache:   cache,
		breaker: breaker,
		limiter: limiter,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

func cacheKey(dataset, country string, window domain.Window) string {
	return fmt.Sprintf("fetch:%s:%s:%s:%s", dataset, country, window.StartDate(), window.EndDate())
}

// FetchInputs reads all tables of a country concurrently and scopes the
// broadcast config to it.
func (f *Fetcher) FetchInputs(ctx context.Context, country string, window domain.Window, config domain.ConfigTable) domain.Inputs {
	var (
		samUsers, mcbUsers []domain.ActiveUser
		schedules          []domain.Schedule
		txs                []domain.Transaction
	)

	var g errgroup.Group
	if f.sources.SAM != nil {
		g.Go(func() error {
			samUsers = fetchCached(ctx, f, SourceSAM, "sam_active", country, window, f.sources.SAM.ActiveUsers)
			return nil
		})
		g.Go(func() error {
			schedules = fetchCached(ctx, f, SourceSAM, "sam_schedule", country, window, f.sources.SAM.Schedules)
			return nil
		})
	}
	if f.sources.MCB != nil {
		g.Go(func() error {
			mcbUsers = fetchCached(ctx, f, SourceMCB, "mcb_active", country, window, f.sources.MCB.ActiveUsers)
			return nil
		})
	}
	if f.sources.Warehouse != nil {
		g.Go(func() error {
			txs = fetchCached(ctx, f, SourceWarehouse, "warehouse_trx", country, window, f.sources.Warehouse.TransactionsPerUser)
			return nil
		})
	}
	g.Wait()

	return domain.Inputs{
		Country:      country,
		Window:       window,
		ActiveUsers:  reconcile.CombinePlatforms(samUsers, mcbUsers),
		Schedules:    schedules,
		Transactions: txs,
		Config:       config.ForCountry(country),
	}
}

func fetchCached[T any](ctx context.Context, f *Fetcher, source, dataset, country string, window domain.Window,
	load func(context.Context, string, domain.Window) ([]T, error)) []T {
	logger := f.logger.With("source", source, "dataset", dataset, "country", country)
	key := cacheKey(dataset, country, window)

	if !f.opts.Refresh {
		var cached []T
		err := f.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			f.metrics.CacheHit(source)
			return cached
		}
		if !errors.Is(err, store.ErrCacheMiss) {
			logger.Warn("fetch cache unreadable", "error", err)
		}
		f.metrics.CacheMiss(source)
	}

	if _, allowed := f.breaker.Allow(ctx, source); !allowed {
		logger.Warn("source circuit open, using empty table")
		f.metrics.FetchFailed(source)
		return []T{}
	}
	if err := f.limiter.Wait(ctx, source, f.opts.RateLimit); err != nil {
		logger.Warn("source rate limit wait aborted, using empty table", "error", err)
		f.metrics.FetchFailed(source)
		return []T{}
	}

	start := time.Now()
	rows, err := load(ctx, country, window)
	if err != nil {
		f.breaker.RecordFailure(ctx, source)
		f.metrics.FetchFailed(source)
		logger.Warn("source query failed, using empty table", "error", err)
		return []T{}
	}
	f.breaker.RecordSuccess(ctx, source)
	logger.Info("source query complete", "rows", len(rows), "duration_ms", time.Since(start).Milliseconds())

	if rows == nil {
		rows = []T{}
	}
	if err := f.cache.SetJSON(ctx, key, rows, f.opts.CacheTTL); err != nil {
		logger.Warn("failed to cache source rows", "error", err)
	}
	return rows
}
