package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/engine"
	"github.com/Priya8975/broadcast-review/internal/metrics"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
	"github.com/Priya8975/broadcast-review/internal/report"
	"github.com/Priya8975/broadcast-review/internal/websocket"
)

type InputFetcher interface {
	FetchInputs(ctx context.Context, country string, window domain.Window, config domain.ConfigTable) domain.Inputs
}

type ConfigSource interface {
	Load(ctx context.Context) (domain.ConfigTable, error)
}

type ReportSaver interface {
	SaveCountryReport(ctx context.Context, runID string, r *domain.CountryReport, failure error) (bool, error)
}

type Retrier interface {
	Retry(ctx context.Context, job engine.CountryJob) error
}

type EventBroadcaster interface {
	Broadcast(event websocket.RunEvent)
}

// RunnerDeps wires a Runner. Events, Notifier and Metrics are optional;
// ReportsDir empty disables CSV files.
type RunnerDeps struct {
	Fetcher    InputFetcher
	Configs    ConfigSource
	Saver      ReportSaver
	Retrier    Retrier
	Events     EventBroadcaster
	Notifier   Notifier
	Metrics    *metrics.Metrics
	ReportsDir string
}

// Runner executes country jobs: fetch, reconcile, write the CSV, store the
// report, then announce it. A failure only affects its own country; it is
// retried until the job's attempts run out and then stored as failed.
type Runner struct {
	deps   RunnerDeps
	logger *slog.Logger
}

func NewRunner(deps RunnerDeps, logger *slog.Logger) *Runner {
	return &Runner{deps: deps, logger: logger}
}

func (r *Runner) broadcast(event websocket.RunEvent) {
	if r.deps.Events != nil {
		r.deps.Events.Broadcast(event)
	}
}

// Handle runs one job to completion.
func (r *Runner) Handle(ctx context.Context, job engine.CountryJob) {
	start := time.Now()
	logger := r.logger.With("run_id", job.RunID, "country", job.Country, "attempt", job.Attempt)
	logger.Info("country reconciliation started", "window", job.Window.Label())
	r.broadcast(websocket.RunEvent{Type: websocket.EventCountryStarted, RunID: job.RunID, Country: job.Country, Attempt: job.Attempt})

	result, err := r.reconcile(ctx, job)
	if err != nil {
		r.fail(ctx, job, err, start, logger)
		return
	}

	if r.deps.ReportsDir != "" {
		path, err := report.SaveCSV(r.deps.ReportsDir, result)
		if err != nil {
			logger.Warn("failed to write csv report", "error", err)
		} else if path != "" {
			logger.Info("csv report written", "path", path)
		}
	}

	runDone, err := r.deps.Saver.SaveCountryReport(ctx, job.RunID, result, nil)
	if err != nil {
		r.fail(ctx, job, err, start, logger)
		return
	}

	r.deps.Metrics.CountryFinished(string(result.Outcome), time.Since(start))
	logger.Info("country reconciliation complete",
		"outcome", result.Outcome,
		"cohorts", len(result.ActivePerService),
		"reported_cohorts", len(result.Results.Rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	r.broadcast(websocket.RunEvent{
		Type:    websocket.EventCountryCompleted,
		RunID:   job.RunID,
		Country: job.Country,
		Outcome: result.Outcome,
		Cohorts: len(result.Results.Rows),
	})
	r.notify(ctx, job, result, logger)

	if runDone {
		logger.Info("run complete")
		r.broadcast(websocket.RunEvent{Type: websocket.EventRunCompleted, RunID: job.RunID})
	}
}

func (r *Runner) reconcile(ctx context.Context, job engine.CountryJob) (*domain.CountryReport, error) {
	config, err := r.deps.Configs.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading broadcast config: %w", err)
	}
	inputs := r.deps.Fetcher.FetchInputs(ctx, job.Country, job.Window, config)
	return reconcile.Reconcile(inputs), nil
}

func (r *Runner) notify(ctx context.Context, job engine.CountryJob, result *domain.CountryReport, logger *slog.Logger) {
	if r.deps.Notifier == nil || result.Outcome != domain.OutcomeReported {
		return
	}
	err := r.deps.Notifier.Notify(ctx, ReportReady{
		RunID:   job.RunID,
		Country: job.Country,
		Window:  job.Window,
		Outcome: result.Outcome,
		Cohorts: len(result.Results.Rows),
		Summary: result.Summary,
	})
	if err != nil {
		logger.Warn("report notification failed", "error", err)
	}
}

func (r *Runner) fail(ctx context.Context, job engine.CountryJob, cause error, start time.Time, logger *slog.Logger) {
	if job.Attempt < job.MaxAttempts {
		err := r.deps.Retrier.Retry(ctx, job)
		if err == nil {
			logger.Warn("country reconciliation failed, retrying", "error", cause)
			r.broadcast(websocket.RunEvent{
				Type:    websocket.EventCountryRetrying,
				RunID:   job.RunID,
				Country: job.Country,
				Attempt: job.Attempt,
				Error:   cause.Error(),
			})
			return
		}
		logger.Error("failed to requeue country job", "error", err)
	}

	logger.Error("country reconciliation failed", "error", cause)
	r.deps.Metrics.CountryFinished(string(domain.OutcomeFailed), time.Since(start))

	failed := &domain.CountryReport{Country: job.Country, Window: job.Window, Outcome: domain.OutcomeFailed}
	runDone, err := r.deps.Saver.SaveCountryReport(ctx, job.RunID, failed, cause)
	if err != nil {
		logger.Error("failed to record country failure", "error", err)
	}
	r.broadcast(websocket.RunEvent{
		Type:    websocket.EventCountryFailed,
		RunID:   job.RunID,
		Country: job.Country,
		Outcome: domain.OutcomeFailed,
		Attempt: job.Attempt,
		Error:   cause.Error(),
	})
	if runDone {
		r.broadcast(websocket.RunEvent{Type: websocket.EventRunCompleted, RunID: job.RunID})
	}
}
