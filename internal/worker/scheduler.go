package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// RunTracker creates runs and finds the ones that stalled.
type RunTracker interface {
	CreateRun(ctx context.Context, window domain.Window, countries []string) (*domain.Run, error)
	StaleRuns(ctx context.Context) ([]domain.Run, error)
	PendingCountries(ctx context.Context, runID string) ([]string, error)
}

// RunQueue fans a run out to the country workers.
type RunQueue interface {
	FanOut(ctx context.Context, run *domain.Run, countries ...string) (int, error)
}

// Scheduler triggers the weekly run and requeues countries of runs that
// never finished, for example because a server died mid-run.
type Scheduler struct {
	runs    RunTracker
	queue   RunQueue
	configs ConfigSource
	cron    string
	now     func() time.Time
	logger  *slog.Logger
}

func NewScheduler(runs RunTracker, queue RunQueue, configs ConfigSource, cronExpr string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runs:    runs,
		queue:   queue,
		configs: configs,
		cron:    cronExpr,
		now:     time.Now,
		logger:  logger,
	}
}

// StartRun creates a run over window for every configured country and
// queues its jobs.
func (s *Scheduler) StartRun(ctx context.Context, window domain.Window) (*domain.Run, error) {
	table, err := s.configs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading broadcast config: %w", err)
	}
	countries := table.Countries()
	if len(countries) == 0 {
		return nil, errors.New("broadcast config lists no countries")
	}

	run, err := s.runs.CreateRun(ctx, window, countries)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.FanOut(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// RequeueStale queues the pending countries of every stale run again and
// returns how many jobs were queued.
func (s *Scheduler) RequeueStale(ctx context.Context) (int, error) {
	runs, err := s.runs.StaleRuns(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range runs {
		run := &runs[i]
		pending, err := s.runs.PendingCountries(ctx, run.ID)
		if err != nil {
			return total, err
		}
		if len(pending) == 0 {
			continue
		}
		n, err := s.queue.FanOut(ctx, run, pending...)
		if err != nil {
			return total, err
		}
		total += n
		s.logger.Warn("requeued stale run", "run_id", run.ID, "countries", pending)
	}
	return total, nil
}

// Start schedules the weekly run and an hourly stale-run sweep, and blocks
// until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	cron := gocron.NewScheduler(time.UTC)

	_, err := cron.Cron(s.cron).Do(func() {
		run, err := s.StartRun(ctx, domain.WeeklyWindow(s.now()))
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run started", "run_id", run.ID, "window", run.Window.Label())
	})
	if err != nil {
		return fmt.Errorf("scheduling weekly run %q: %w", s.cron, err)
	}

	_, err = cron.Every(1).Hour().Do(func() {
		if _, err := s.RequeueStale(ctx); err != nil {
			s.logger.Error("stale run sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling stale run sweep: %w", err)
	}

	cron.StartAsync()
	s.logger.Info("scheduler started", "cron", s.cron)

	<-ctx.Done()
	cron.Stop()
	s.logger.Info("scheduler stopped")
	return nil
}
