package domain

import "time"

type Schedule struct {
	ScheduleID   string    `json:"scheduleid"`
	ServiceID    string    `json:"serviceid"`
	OperatorCode string    `json:"operator_code"`
	Tariff       string    `json:"tariff"`
	BillingDays  *string   `json:"billing_days,omitempty"`
	Status       string    `json:"schedule_status"`
	UpdatedAt    time.Time `json:"updatedate"`
}

type Transaction struct {
	MSISDN                string  `json:"msisdn"`
	Platform              string  `json:"platform"`
	ServiceIdentifier1    string  `json:"service_identifier1"`
	ServiceIdentifier2    string  `json:"service_identifier2"`
	Tariff                string  `json:"tariff"`
	RockmanID             *string `json:"rockman_id,omitempty"`
	TotalTransactions     int     `json:"total_transactions"`
	DeliveredTransactions int     `json:"delivered_transactions"`
}
