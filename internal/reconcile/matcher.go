package reconcile

import (
	"strings"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/shopspring/decimal"
)

// MatchScore rates how specifically a rule's drilldown values match a
// cohort's. Every literal match at position k adds 2^k; any literal that
// differs from the cohort's value forces the score to 0.
func MatchScore(rule, cohort [4]string) int {
	score := 0
	for k := range rule {
		if rule[k] != domain.Wildcard && rule[k] != cohort[k] {
			return 0
		}
		if rule[k] == cohort[k] {
			score += 1 << k
		}
	}
	return score
}

// BestRule returns the index of the first rule with the highest positive
// score, or -1 when no rule scores above 0.
func BestRule(key domain.CohortKey, rules []domain.ConfigRule) int {
	best, bestScore := -1, 0
	cohort := key.Drilldown()
	for i, r := range rules {
		if score := MatchScore(r.Drilldown(), cohort); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// MatchBroadcastConfig attaches the best rule's metadata to every cohort and
// flags cohorts whose expected transaction bounds are both negative.
// Unmatched cohorts get "?" in every metadata column.
func MatchBroadcastConfig(cohorts []domain.Cohort, config domain.ConfigTable) []domain.Cohort {
	minIdx := config.MetadataIndex(domain.ColumnMinExpected)
	maxIdx := config.MetadataIndex(domain.ColumnMaxExpected)

	out := make([]domain.Cohort, len(cohorts))
	for i, c := range cohorts {
		if best := BestRule(c.CohortKey, config.Rules); best >= 0 {
			c.Metadata = alignMetadata(config.Rules[best].Metadata, len(config.MetadataColumns))
		} else {
			c.Metadata = unmatchedMetadata(len(config.MetadataColumns))
		}
		c.Muted = minIdx >= 0 && maxIdx >= 0 &&
			isNegative(c.Metadata[minIdx]) && isNegative(c.Metadata[maxIdx])
		out[i] = c
	}
	return out
}

func alignMetadata(values []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(values) {
			out[i] = values[i]
		} else {
			out[i] = domain.Unmatched
		}
	}
	return out
}

func unmatchedMetadata(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = domain.Unmatched
	}
	return out
}

// isNegative reports whether v parses as a negative number. Values that do
// not parse are not negative.
func isNegative(v string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	return err == nil && d.IsNegative()
}
