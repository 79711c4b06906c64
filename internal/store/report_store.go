package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRun records a queued run for the window and countries.
func (s *PostgresStore) CreateRun(ctx context.Context, window domain.Window, countries []string) (*domain.Run, error) {
	// Completion counts one stored row per country, so the list must be distinct.
	countries = domain.NormalizeCountries(countries)
	run := domain.Run{
		ID:        uuid.NewString(),
		Window:    window,
		Countries: countries,
		Status:    domain.RunQueued,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO report_runs (id, window_start, window_end, countries, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, run.ID, window.Start, window.End, countries, run.Status).Scan(&run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &run, nil
}

// SaveCountryReport stores one country's outcome. failure is recorded when
// the job failed before producing a report. It reports whether this was the
// last outstanding country of the run, in which case the run is completed.
func (s *PostgresStore) SaveCountryReport(ctx context.Context, runID string, report *domain.CountryReport, failure error) (bool, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return false, fmt.Errorf("marshaling %s report: %w", report.Country, err)
	}

	var errMsg *string
	if failure != nil {
		msg := failure.Error()
		errMsg = &msg
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO country_reports (run_id, country, outcome, error, cohorts, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, country) DO UPDATE
		SET outcome = EXCLUDED.outcome, error = EXCLUDED.error, cohorts = EXCLUDED.cohorts,
			report = EXCLUDED.report, finished_at = NOW()
	`, runID, report.Country, string(report.Outcome), errMsg, len(report.Results.Rows), payload)
	if err != nil {
		return false, fmt.Errorf("inserting %s report: %w", report.Country, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE report_runs r
		SET status = $2, completed_at = NOW()
		WHERE r.id = $1
		  AND r.status <> $2
		  AND (SELECT COUNT(*) FROM country_reports c WHERE c.run_id = r.id) >= cardinality(r.countries)
	`, runID, domain.RunCompleted)
	if err != nil {
		return false, fmt.Errorf("completing run %s: %w", runID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	err := row.Scan(&run.ID, &run.Window.Start, &run.Window.End, &run.Countries,
		&run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	run.Window.Start = run.Window.Start.UTC()
	run.Window.End = run.Window.End.UTC()
	return &run, nil
}

// ListRuns returns the most recent runs first, without per-country results.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT id::text, window_start, window_end, countries, status, created_at, completed_at
		FROM report_runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns a run with the results recorded so far.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	run, err := scanRun(s.pool.QueryRow(ctx, `
		SELECT id::text, window_start, window_end, countries, status, created_at, completed_at
		FROM report_runs WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT country, outcome, COALESCE(error, ''), cohorts, finished_at
		FROM country_reports WHERE run_id = $1 ORDER BY country
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying results of run %s: %w", id, err)
	}
	run.Results, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CountryResult, error) {
		var r domain.CountryResult
		var outcome string
		err := row.Scan(&r.Country, &outcome, &r.Error, &r.Cohorts, &r.FinishedAt)
		r.Outcome = domain.Outcome(outcome)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning results of run %s: %w", id, err)
	}
	return run, nil
}

// GetCountryReport loads the stored report of one country in a run.
func (s *PostgresStore) GetCountryReport(ctx context.Context, runID, country string) (*domain.CountryReport, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrNotFound
	}

	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT report FROM country_reports WHERE run_id = $1 AND country = $2
	`, runID, country).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && payload == nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s report of run %s: %w", country, runID, err)
	}

	var report domain.CountryReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decoding %s report: %w", country, err)
	}
	return &report, nil
}

// PendingCountries returns the countries of a run that have no stored result yet.
func (s *PostgresStore) PendingCountries(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c FROM report_runs r, unnest(r.countries) AS c
		WHERE r.id = $1
		  AND NOT EXISTS (SELECT 1 FROM country_reports cr WHERE cr.run_id = r.id AND cr.country = c)
		ORDER BY c
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying pending countries of run %s: %w", runID, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

const staleAfter = 6 * time.Hour

// StaleRuns returns runs still queued staleAfter after creation. Their
// pending countries are candidates for requeueing.
func (s *PostgresStore) StaleRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, window_start, window_end, countries, status, created_at, completed_at
		FROM report_runs WHERE status = $1 AND created_at < $2 ORDER BY created_at
	`, domain.RunQueued, time.Now().Add(-staleAfter))
	if err != nil {
		return nil, fmt.Errorf("querying stale runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
