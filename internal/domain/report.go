package domain

import (
	"sort"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Window is the half-open reporting period [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeeklyWindow returns the full week that ended on the most recent Monday
// 00:00 UTC at or before now.
func WeeklyWindow(now time.Time) Window {
	today := now.UTC().Truncate(24 * time.Hour)
	daysSinceMonday := (int(today.Weekday()) + 6) % 7
	end := today.AddDate(0, 0, -daysSinceMonday)
	return Window{Start: end.AddDate(0, 0, -7), End: end}
}

func (w Window) StartDate() string { return w.Start.Format(dateLayout) }
func (w Window) EndDate() string   { return w.End.Format(dateLayout) }

// Label is "start_end", or just the start date for a single-day window.
func (w Window) Label() string {
	if w.Start.Equal(w.End) {
		return w.StartDate()
	}
	return w.StartDate() + "_" + w.EndDate()
}

// Inputs are the already-fetched tables for one country and window.
type Inputs struct {
	Country      string        `json:"country"`
	Window       Window        `json:"window"`
	ActiveUsers  []ActiveUser  `json:"active_users"`
	Schedules    []Schedule    `json:"schedules"`
	Transactions []Transaction `json:"transactions"`
	Config       ConfigTable   `json:"config"`
}

type Outcome string

const (
	OutcomeReported      Outcome = "reported"
	OutcomeNoActiveUsers Outcome = "no_active_users"
	OutcomeAllMuted      Outcome = "all_muted"
	OutcomeFailed        Outcome = "failed"
)

// PlatformCount is one line of a per-platform summary.
type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int    `json:"count"`
}

// Summary compares what the warehouse holds against what was linked.
type Summary struct {
	ActiveUsers           []PlatformCount `json:"active_users"`
	WarehouseTransactions []PlatformCount `json:"warehouse_transactions"`
	MatchedTransactions   []PlatformCount `json:"matched_transactions"`
}

type ResultRow struct {
	CohortKey
	ActiveUsers int         `json:"active_users"`
	Metadata    []string    `json:"metadata"`
	Counts      map[int]int `json:"counts"`
}

// ResultTable is the cohort by transaction-count cross-tab.
type ResultTable struct {
	MetadataColumns   []string    `json:"metadata_columns"`
	TransactionCounts []int       `json:"transaction_counts"`
	Rows              []ResultRow `json:"rows"`
}

func (t ResultTable) Empty() bool { return len(t.Rows) == 0 }

// Header returns the column names in output order.
func (t ResultTable) Header() []string {
	header := append([]string{}, CohortColumns...)
	header = append(header, "active_users")
	header = append(header, t.MetadataColumns...)
	for _, n := range t.TransactionCounts {
		header = append(header, strconv.Itoa(n))
	}
	return header
}

// Records renders every row as strings aligned with Header.
func (t ResultTable) Records() [][]string {
	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := row.CohortKey.Values()
		rec = append(rec, strconv.Itoa(row.ActiveUsers))
		rec = append(rec, row.Metadata...)
		for _, n := range t.TransactionCounts {
			rec = append(rec, strconv.Itoa(row.Counts[n]))
		}
		records = append(records, rec)
	}
	return records
}

type CountryReport struct {
	Country          string      `json:"country"`
	Window           Window      `json:"window"`
	Outcome          Outcome     `json:"outcome"`
	ActivePerService []Cohort    `json:"active_per_service"`
	Results          ResultTable `json:"results"`
	Summary          Summary     `json:"summary"`

	// Linked is kept in memory for cohort inspection and never serialized.
	Linked []LinkedUser `json:"-"`
}

// SortedCounts flattens a per-platform count map, ordered by platform.
func SortedCounts(m map[string]int) []PlatformCount {
	out := make([]PlatformCount, 0, len(m))
	for k, v := range m {
		out = append(out, PlatformCount{Platform: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}
