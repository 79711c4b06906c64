package reconcile

import (
	"sort"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// AggregateCohorts counts active users per cohort key, ordered by key.
func AggregateCohorts(users []domain.ActiveUser) []domain.Cohort {
	counts := make(map[domain.CohortKey]int)
	for _, u := range users {
		counts[u.CohortKey()]++
	}

	cohorts := make([]domain.Cohort, 0, len(counts))
	for key, n := range counts {
		cohorts = append(cohorts, domain.Cohort{CohortKey: key, ActiveUsers: n})
	}
	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].CohortKey.Less(cohorts[j].CohortKey)
	})
	return cohorts
}
