package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/store"
	"github.com/redis/go-redis/v9"
)

const CountryQueueKey = "country_queue"

// DefaultMaxAttempts bounds how often a country job runs before it is
// recorded as failed.
const DefaultMaxAttempts = 3

// CountryJob reconciles one country of a run. Jobs wait in a Redis sorted
// set scored by the time they become ready.
type CountryJob struct {
	RunID       string        `json:"run_id"`
	Country     string        `json:"country"`
	Window      domain.Window `json:"window"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"max_attempts"`
	QueuedAt    time.Time     `json:"queued_at"`
}

// FanOutEngine splits a run into one queued job per country.
type FanOutEngine struct {
	redisStore *store.RedisStore
	logger     *slog.Logger
}

func NewFanOutEngine(rs *store.RedisStore, logger *slog.Logger) *FanOutEngine {
	return &FanOutEngine{
		redisStore: rs,
		logger:     logger,
	}
}

func (f *FanOutEngine) enqueue(ctx context.Context, pipe redis.Pipeliner, job CountryJob, readyAt time.Time) error {
	job.QueuedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling %s job: %w", job.Country, err)
	}
	pipe.ZAdd(ctx, CountryQueueKey, redis.Z{
		Score:  float64(readyAt.UnixMicro()),
		Member: string(data),
	})
	return nil
}

// FanOut queues a job for each of the given countries of the run, or all of
// the run's countries when none are given. Returns the number of jobs queued.
func (f *FanOutEngine) FanOut(ctx context.Context, run *domain.Run, countries ...string) (int, error) {
	if len(countries) == 0 {
		countries = run.Countries
	}
	if len(countries) == 0 {
		f.logger.Info("run has no countries", "run_id", run.ID)
		return 0, nil
	}

	pipe := f.redisStore.Client().Pipeline()
	now := time.Now()
	for _, country := range countries {
		job := CountryJob{
			RunID:       run.ID,
			Country:     country,
			Window:      run.Window,
			Attempt:     1,
			MaxAttempts: DefaultMaxAttempts,
		}
		if err := f.enqueue(ctx, pipe, job, now); err != nil {
			return 0, err
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("queuing country jobs to redis: %w", err)
	}

	f.logger.Info("fan-out complete",
		"run_id", run.ID,
		"window", run.Window.Label(),
		"jobs_queued", len(countries),
	)
	return len(countries), nil
}

// RetryDelay is the wait before attempt+1: 30s doubling per attempt, capped at 10m.
func RetryDelay(attempt int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return d
}

// Retry requeues the job for its next attempt after RetryDelay.
func (f *FanOutEngine) Retry(ctx context.Context, job CountryJob) error {
	delay := RetryDelay(job.Attempt)
	job.Attempt++

	pipe := f.redisStore.Client().Pipeline()
	if err := f.enqueue(ctx, pipe, job, time.Now().Add(delay)); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeuing %s job: %w", job.Country, err)
	}

	f.logger.Info("country job requeued",
		"run_id", job.RunID,
		"country", job.Country,
		"attempt", job.Attempt,
		"delay", delay.String(),
	)
	return nil
}

// QueueDepth returns the current number of jobs waiting in the queue.
func (f *FanOutEngine) QueueDepth(ctx context.Context) (int64, error) {
	return f.redisStore.Client().ZCard(ctx, CountryQueueKey).Result()
}
