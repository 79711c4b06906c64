package domain

// Billing platforms that feed active subscribers.
const (
	PlatformSAM = "sam"
	PlatformMCB = "mcb"
)

// Subscription statuses after platform normalization.
const (
	StatusActive   = "A"
	StatusInactive = "I"
)

type ActiveUser struct {
	Platform           string  `json:"platform"`
	AccountID          string  `json:"accountid"`
	MSISDN             string  `json:"msisdn"`
	ServiceID          string  `json:"serviceid"`
	OperatorCode       string  `json:"operator_code"`
	ServiceIdentifier1 string  `json:"service_identifier1"`
	ServiceIdentifier2 string  `json:"service_identifier2"`
	Gateway            string  `json:"gateway"`
	Status             string  `json:"status"`
	RockmanID          *string `json:"rockman_id,omitempty"`

	// Set by enrichment from the canonical schedule.
	Frequency   int    `json:"frequency"`
	Tariff      string `json:"tariff"`
	BillingDays string `json:"billing_days"`
}

// CohortKey returns the six fields that identify the user's cohort.
func (u ActiveUser) CohortKey() CohortKey {
	return CohortKey{
		Platform:           u.Platform,
		Gateway:            u.Gateway,
		OperatorCode:       u.OperatorCode,
		ServiceIdentifier1: u.ServiceIdentifier1,
		ServiceIdentifier2: u.ServiceIdentifier2,
		Frequency:          u.Frequency,
	}
}

// LinkedUser is an active user with the transactions linked to it.
type LinkedUser struct {
	ActiveUser
	TotalTransactions     int `json:"total_transactions"`
	DeliveredTransactions int `json:"delivered_transactions"`
	Users                 int `json:"users"`
}
