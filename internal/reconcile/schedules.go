package reconcile

import (
	"strings"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

type scheduleKey struct {
	serviceID    string
	operatorCode string
}

// DedupeSchedules explodes comma-separated operator codes and keeps one
// canonical schedule per (service id, operator code).
//
// Within a group a lone row wins, then a lone active row, then the latest
// updated row: among all rows when none is active, among the active rows
// otherwise. On equal timestamps the later row wins.
func DedupeSchedules(rows []domain.Schedule) []domain.Schedule {
	groups := make(map[scheduleKey][]domain.Schedule)
	var services []string
	operators := make(map[string][]string)

	for _, row := range rows {
		if _, seen := operators[row.ServiceID]; !seen {
			services = append(services, row.ServiceID)
			operators[row.ServiceID] = nil
		}
		for _, code := range strings.Split(row.OperatorCode, ",") {
			exploded := row
			exploded.OperatorCode = code
			key := scheduleKey{serviceID: row.ServiceID, operatorCode: code}
			if _, seen := groups[key]; !seen {
				operators[row.ServiceID] = append(operators[row.ServiceID], code)
			}
			groups[key] = append(groups[key], exploded)
		}
	}

	out := make([]domain.Schedule, 0, len(groups))
	for _, serviceID := range services {
		for _, code := range operators[serviceID] {
			out = append(out, canonicalSchedule(groups[scheduleKey{serviceID: serviceID, operatorCode: code}]))
		}
	}
	return out
}

func canonicalSchedule(group []domain.Schedule) domain.Schedule {
	if len(group) == 1 {
		return group[0]
	}

	var active []domain.Schedule
	for _, s := range group {
		if s.Status == domain.StatusActive {
			active = append(active, s)
		}
	}

	switch len(active) {
	case 1:
		return active[0]
	case 0:
		return latestSchedule(group)
	default:
		return latestSchedule(active)
	}
}

func latestSchedule(group []domain.Schedule) domain.Schedule {
	latest := group[0]
	for _, s := range group[1:] {
		if !s.UpdatedAt.Before(latest.UpdatedAt) {
			latest = s
		}
	}
	return latest
}
