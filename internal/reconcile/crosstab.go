package reconcile

import (
	"sort"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// BuildCrossTab tabulates, for every cohort that is not muted, how many
// linked users had each total transaction count. The count columns are the
// union over all reported cohorts and always include 0.
func BuildCrossTab(cohorts []domain.Cohort, linked []domain.LinkedUser, metadataColumns []string) domain.ResultTable {
	byCohort := make(map[domain.CohortKey]map[int]int)
	for _, l := range linked {
		key := l.CohortKey()
		counts, ok := byCohort[key]
		if !ok {
			counts = make(map[int]int)
			byCohort[key] = counts
		}
		counts[l.TotalTransactions] += l.Users
	}

	table := domain.ResultTable{MetadataColumns: metadataColumns}
	columns := map[int]struct{}{0: {}}
	for _, c := range cohorts {
		if c.Muted {
			continue
		}
		counts := map[int]int{0: 0}
		for n, users := range byCohort[c.CohortKey] {
			counts[n] = users
			columns[n] = struct{}{}
		}
		table.Rows = append(table.Rows, domain.ResultRow{
			CohortKey:   c.CohortKey,
			ActiveUsers: c.ActiveUsers,
			Metadata:    c.Metadata,
			Counts:      counts,
		})
	}
	if len(table.Rows) == 0 {
		return table
	}

	table.TransactionCounts = make([]int, 0, len(columns))
	for n := range columns {
		table.TransactionCounts = append(table.TransactionCounts, n)
	}
	sort.Ints(table.TransactionCounts)
	return table
}
