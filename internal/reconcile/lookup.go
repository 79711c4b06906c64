package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// CohortFilter selects users by a leading subset of the cohort key fields.
type CohortFilter struct {
	values []string
}

// ParseCohortFilter reads a tab-separated prefix of the cohort key, as copied
// from a row of the report (platform, gateway, operator code, ...).
func ParseCohortFilter(s string) (CohortFilter, error) {
	values := strings.Split(s, "\t")
	if len(values) > len(domain.CohortColumns) {
		return CohortFilter{}, fmt.Errorf("cohort filter has %d fields, at most %d allowed", len(values), len(domain.CohortColumns))
	}
	if len(values) == len(domain.CohortColumns) {
		freq, err := strconv.Atoi(strings.TrimSpace(values[len(values)-1]))
		if err != nil {
			return CohortFilter{}, fmt.Errorf("parsing frequency: %w", err)
		}
		values[len(values)-1] = strconv.Itoa(freq)
	}
	return CohortFilter{values: values}, nil
}

// Matches reports whether the key agrees with every field of the filter.
func (f CohortFilter) Matches(key domain.CohortKey) bool {
	keyValues := key.Values()
	for i, v := range f.values {
		if keyValues[i] != v {
			return false
		}
	}
	return true
}

// FindCohortUsers returns the linked users that fall into the filtered cohort.
func FindCohortUsers(linked []domain.LinkedUser, f CohortFilter) []domain.LinkedUser {
	var out []domain.LinkedUser
	for _, l := range linked {
		if f.Matches(l.CohortKey()) {
			out = append(out, l)
		}
	}
	return out
}
