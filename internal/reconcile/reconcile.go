package reconcile

import "github.com/Priya8975/broadcast-review/internal/domain"

// Reconcile runs the whole pipeline for one country. Active users are
// expected to be combined across platforms already and the config to hold
// only the country's rules. A country without active users yields an empty
// report with outcome no_active_users.
func Reconcile(in domain.Inputs) *domain.CountryReport {
	report := &domain.CountryReport{
		Country: in.Country,
		Window:  in.Window,
		Outcome: domain.OutcomeNoActiveUsers,
	}
	if len(in.ActiveUsers) == 0 {
		return report
	}

	policy := PolicyFor(in.Country)
	schedules := DedupeSchedules(in.Schedules)
	users := EnrichActiveUsers(in.ActiveUsers, schedules, policy)
	cohorts := MatchBroadcastConfig(AggregateCohorts(users), in.Config)
	linked := LinkTransactions(users, in.Transactions, policy)

	report.ActivePerService = cohorts
	report.Linked = linked
	report.Summary = Summarize(users, in.Transactions, linked)
	report.Results = BuildCrossTab(cohorts, linked, in.Config.MetadataColumns)

	report.Outcome = domain.OutcomeReported
	if report.Results.Empty() {
		report.Outcome = domain.OutcomeAllMuted
	}
	return report
}

// Summarize counts active users, warehouse transactions and linked
// transactions per platform.
func Summarize(users []domain.ActiveUser, txs []domain.Transaction, linked []domain.LinkedUser) domain.Summary {
	active := make(map[string]int)
	for _, u := range users {
		active[u.Platform]++
	}
	warehouse := make(map[string]int)
	for _, t := range txs {
		warehouse[t.Platform] += t.TotalTransactions
	}
	matched := make(map[string]int)
	for _, l := range linked {
		matched[l.Platform] += l.TotalTransactions
	}
	return domain.Summary{
		ActiveUsers:           domain.SortedCounts(active),
		WarehouseTransactions: domain.SortedCounts(warehouse),
		MatchedTransactions:   domain.SortedCounts(matched),
	}
}
