// Package report renders country reports as CSV files and text summaries.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// LocalFilename returns <dir>/<window label>/<country>.<ext>.
func LocalFilename(dir string, window domain.Window, country, ext string) string {
	return filepath.Join(dir, window.Label(), country+"."+ext)
}

// WriteCSV writes the cross-tab with a header row.
func WriteCSV(w io.Writer, table domain.ResultTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

// SaveCSV writes the report's cross-tab under dir and returns the path. A
// report without results writes nothing and returns "".
func SaveCSV(dir string, r *domain.CountryReport) (string, error) {
	if r.Results.Empty() {
		return "", nil
	}

	path := LocalFilename(dir, r.Window, r.Country, "csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, r.Results); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// WriteSummary prints the per-platform totals of a report. Reports without
// active users print nothing.
func WriteSummary(w io.Writer, r *domain.CountryReport) error {
	if r.Outcome == domain.OutcomeNoActiveUsers || r.Outcome == domain.OutcomeFailed {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	sections := []struct {
		title  string
		counts []domain.PlatformCount
	}{
		{"Active users", r.Summary.ActiveUsers},
		{"Total transactions in warehouse", r.Summary.WarehouseTransactions},
		{"Total transactions matched to active users", r.Summary.MatchedTransactions},
	}
	for _, s := range sections {
		fmt.Fprintf(tw, "%s (%s):\n", s.title, r.Country)
		for _, c := range s.counts {
			fmt.Fprintf(tw, "  %s\t%d\n", c.Platform, c.Count)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
