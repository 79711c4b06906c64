package reconcile

import (
	"strings"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

const (
	missingTariff    = "-1"
	missingFrequency = -1
)

var mcbStatuses = map[string]string{
	"active":   domain.StatusActive,
	"inactive": domain.StatusInactive,
}

// CombinePlatforms concatenates SAM and MCB subscribers, SAM first. MCB
// statuses are mapped onto SAM's short codes.
func CombinePlatforms(sam, mcb []domain.ActiveUser) []domain.ActiveUser {
	out := make([]domain.ActiveUser, 0, len(sam)+len(mcb))
	for _, u := range sam {
		u.Platform = domain.PlatformSAM
		out = append(out, u)
	}
	for _, u := range mcb {
		u.Platform = domain.PlatformMCB
		if short, ok := mcbStatuses[u.Status]; ok {
			u.Status = short
		}
		out = append(out, u)
	}
	return out
}

// EnrichActiveUsers attaches tariff, billing days and billing frequency from
// the canonical schedule of each user's (service id, operator code), then
// applies the country's identifier normalization. Users without a schedule
// keep tariff -1 and frequency -1.
func EnrichActiveUsers(users []domain.ActiveUser, schedules []domain.Schedule, policy CountryPolicy) []domain.ActiveUser {
	index := make(map[scheduleKey]domain.Schedule, len(schedules))
	for _, s := range schedules {
		key := scheduleKey{serviceID: s.ServiceID, operatorCode: s.OperatorCode}
		if _, dup := index[key]; !dup {
			index[key] = s
		}
	}

	out := make([]domain.ActiveUser, len(users))
	for i, u := range users {
		u.Tariff = missingTariff
		u.BillingDays = ""
		u.Frequency = missingFrequency

		if s, ok := index[scheduleKey{serviceID: u.ServiceID, operatorCode: u.OperatorCode}]; ok {
			if s.Tariff != "" {
				u.Tariff = s.Tariff
			}
			if s.BillingDays != nil {
				u.BillingDays = *s.BillingDays
				u.Frequency = len(strings.Split(*s.BillingDays, ","))
			}
		}

		if policy.ServiceIdentifier2Prefix != "" {
			u.ServiceIdentifier2 = strings.TrimPrefix(u.ServiceIdentifier2, policy.ServiceIdentifier2Prefix)
		}
		out[i] = u
	}
	return out
}

// NormalizeIdentifier trims an identifier and renders float-formatted
// integers ("123.0") as integers.
func NormalizeIdentifier(v string) string {
	v = strings.TrimSpace(v)
	i := strings.IndexByte(v, '.')
	if i <= 0 || !isInteger(v[:i]) {
		return v
	}
	if strings.Trim(v[i+1:], "0") != "" {
		return v
	}
	return v[:i]
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
