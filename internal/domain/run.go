package domain

import (
	"strings"
	"time"
)

// Run statuses.
const (
	RunQueued    = "queued"
	RunCompleted = "completed"
)

// Run is one reconciliation over a window for a set of countries.
type Run struct {
	ID          string          `json:"id"`
	Window      Window          `json:"window"`
	Countries   []string        `json:"countries"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Results     []CountryResult `json:"results,omitempty"`
}

// CountryResult is the stored outcome of one country within a run.
type CountryResult struct {
	Country    string    `json:"country"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Cohorts    int       `json:"cohorts"`
	FinishedAt time.Time `json:"finished_at"`
}

// NormalizeCountries upper-cases and trims country codes, dropping blanks and
// repeats. First appearance decides the order.
func NormalizeCountries(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
