package reconcile

import (
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

func strPtr(s string) *string { return &s }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func user(platform, msisdn, serviceID, operator, sid1, sid2, gateway string) domain.ActiveUser {
	return domain.ActiveUser{
		Platform:           platform,
		AccountID:          "acc-" + msisdn,
		MSISDN:             msisdn,
		ServiceID:          serviceID,
		OperatorCode:       operator,
		ServiceIdentifier1: sid1,
		ServiceIdentifier2: sid2,
		Gateway:            gateway,
		Status:             domain.StatusActive,
	}
}
