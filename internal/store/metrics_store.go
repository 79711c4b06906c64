package store

import (
	"context"
	"fmt"
)

// RunMetrics holds aggregated run and country outcome statistics.
type RunMetrics struct {
	TotalRuns      int     `json:"total_runs"`
	CompletedRuns  int     `json:"completed_runs"`
	PendingRuns    int     `json:"pending_runs"`
	CountryReports int     `json:"country_reports"`
	ReportedCount  int     `json:"reported_count"`
	NoActiveCount  int     `json:"no_active_users_count"`
	AllMutedCount  int     `json:"all_muted_count"`
	FailedCount    int     `json:"failed_count"`
	FailureRate    float64 `json:"failure_rate"`
	AvgCohorts     float64 `json:"avg_cohorts"`
	AvgRunMinutes  float64 `json:"avg_run_minutes"`
}

// GetRunMetrics returns aggregated run statistics from the database.
func (s *PostgresStore) GetRunMetrics(ctx context.Context) (*RunMetrics, error) {
	var m RunMetrics

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'queued') AS pending,
			COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - created_at) / 60)
				FILTER (WHERE completed_at IS NOT NULL), 0)::float8 AS avg_minutes
		FROM report_runs
	`).Scan(&m.TotalRuns, &m.CompletedRuns, &m.PendingRuns, &m.AvgRunMinutes)
	if err != nil {
		return nil, fmt.Errorf("querying run metrics: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE outcome = 'reported') AS reported,
			COUNT(*) FILTER (WHERE outcome = 'no_active_users') AS no_active,
			COUNT(*) FILTER (WHERE outcome = 'all_muted') AS all_muted,
			COUNT(*) FILTER (WHERE outcome = 'failed') AS failed,
			COALESCE(AVG(cohorts) FILTER (WHERE outcome = 'reported'), 0)::float8 AS avg_cohorts
		FROM country_reports
	`).Scan(&m.CountryReports, &m.ReportedCount, &m.NoActiveCount, &m.AllMutedCount, &m.FailedCount, &m.AvgCohorts)
	if err != nil {
		return nil, fmt.Errorf("querying country report metrics: %w", err)
	}

	if m.CountryReports > 0 {
		m.FailureRate = float64(m.FailedCount) / float64(m.CountryReports) * 100
	}

	return &m, nil
}
