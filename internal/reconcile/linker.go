package reconcile

import "github.com/Priya8975/broadcast-review/internal/domain"

// LinkTransactions left-joins users to transactions. Users with a rockman id
// are joined on it alone; the others on the policy's link keys. A user
// matching several transaction rows yields one linked row per match; a user
// matching none yields a single row with zero counts. Rockman-linked rows
// come first.
func LinkTransactions(users []domain.ActiveUser, txs []domain.Transaction, policy CountryPolicy) []domain.LinkedUser {
	byRockman := make(map[string][]int)
	byKey := make(map[string][]int)
	for i, t := range txs {
		if t.RockmanID != nil {
			byRockman[*t.RockmanID] = append(byRockman[*t.RockmanID], i)
		}
		key := policy.transactionKey(t)
		byKey[key] = append(byKey[key], i)
	}

	linked := make([]domain.LinkedUser, 0, len(users))
	for _, u := range users {
		if u.RockmanID != nil {
			linked = appendMatches(linked, u, txs, byRockman[*u.RockmanID])
		}
	}
	for _, u := range users {
		if u.RockmanID == nil {
			linked = appendMatches(linked, u, txs, byKey[policy.userKey(u)])
		}
	}
	return linked
}

func appendMatches(linked []domain.LinkedUser, u domain.ActiveUser, txs []domain.Transaction, matches []int) []domain.LinkedUser {
	if len(matches) == 0 {
		return append(linked, domain.LinkedUser{ActiveUser: u, Users: 1})
	}
	for _, i := range matches {
		linked = append(linked, domain.LinkedUser{
			ActiveUser:            u,
			TotalTransactions:     txs[i].TotalTransactions,
			DeliveredTransactions: txs[i].DeliveredTransactions,
			Users:                 1,
		})
	}
	return linked
}
