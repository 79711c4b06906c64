package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
)

const countryColumn = "country_code"

// ignoredConfigColumns are derived by earlier tooling and never metadata.
var ignoredConfigColumns = map[string]bool{"match_score": true}

// LoadBroadcastConfig reads the broadcast configuration sheet from a local
// path or an http(s) CSV export URL.
func LoadBroadcastConfig(ctx context.Context, location string) (domain.ConfigTable, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		f, err := os.Open(location)
		if err != nil {
			return domain.ConfigTable{}, fmt.Errorf("opening broadcast config: %w", err)
		}
		defer f.Close()
		return ParseBroadcastConfig(f)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return domain.ConfigTable{}, fmt.Errorf("creating broadcast config request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return domain.ConfigTable{}, fmt.Errorf("downloading broadcast config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ConfigTable{}, fmt.Errorf("downloading broadcast config: unexpected status %d", resp.StatusCode)
	}
	return ParseBroadcastConfig(resp.Body)
}

// ParseBroadcastConfig decodes the sheet. Blank drilldown cells become "*",
// blank metadata cells "?". Every column other than country_code and the
// drilldown columns is metadata, in sheet order.
func ParseBroadcastConfig(r io.Reader) (domain.ConfigTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return domain.ConfigTable{}, fmt.Errorf("reading broadcast config header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range append([]string{countryColumn}, domain.DrilldownColumns...) {
		if _, ok := index[col]; !ok {
			return domain.ConfigTable{}, fmt.Errorf("broadcast config is missing column %q", col)
		}
	}

	drilldown := map[string]bool{countryColumn: true}
	for _, col := range domain.DrilldownColumns {
		drilldown[col] = true
	}
	var table domain.ConfigTable
	var metadataIdx []int
	for i, col := range header {
		if !drilldown[col] && !ignoredConfigColumns[col] {
			table.MetadataColumns = append(table.MetadataColumns, col)
			metadataIdx = append(metadataIdx, i)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.ConfigTable{}, fmt.Errorf("reading broadcast config line %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}

		cell := func(i int, fill string) string {
			if i < len(record) && record[i] != "" {
				return record[i]
			}
			return fill
		}
		// Spreadsheet exports render numeric ids as floats ("123.0").
		drilldown := func(column string) string {
			return reconcile.NormalizeIdentifier(cell(index[column], domain.Wildcard))
		}
		rule := domain.ConfigRule{
			CountryCode:        cell(index[countryColumn], domain.Wildcard),
			Gateway:            drilldown("gateway"),
			OperatorCode:       drilldown("operator_code"),
			ServiceIdentifier1: drilldown("service_identifier1"),
			ServiceIdentifier2: drilldown("service_identifier2"),
			Metadata:           make([]string, len(metadataIdx)),
		}
		for j, i := range metadataIdx {
			rule.Metadata[j] = cell(i, domain.Unmatched)
		}
		table.Rules = append(table.Rules, rule)
	}

	return table, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

const configCacheKey = "broadcast_config"

// ConfigLoader serves the broadcast config sheet from a short-lived Redis
// copy so that every job of a run matches against the same sheet.
type ConfigLoader struct {
	location string
	cache    *RedisStore
	ttl      time.Duration
}

func NewConfigLoader(location string, cache *RedisStore, ttl time.Duration) *ConfigLoader {
	return &ConfigLoader{location: location, cache: cache, ttl: ttl}
}

// Load returns the cached sheet, downloading it on a miss.
func (l *ConfigLoader) Load(ctx context.Context) (domain.ConfigTable, error) {
	var table domain.ConfigTable
	if err := l.cache.GetJSON(ctx, configCacheKey, &table); err == nil {
		return table, nil
	}

	table, err := LoadBroadcastConfig(ctx, l.location)
	if err != nil {
		return domain.ConfigTable{}, err
	}
	if err := l.cache.SetJSON(ctx, configCacheKey, table, l.ttl); err != nil {
		return domain.ConfigTable{}, fmt.Errorf("caching broadcast config: %w", err)
	}
	return table, nil
}

// Invalidate drops the cached sheet so the next Load downloads it again.
func (l *ConfigLoader) Invalidate(ctx context.Context) error {
	return l.cache.Client().Del(ctx, configCacheKey).Err()
}
