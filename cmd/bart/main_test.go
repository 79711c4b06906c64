package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end string
		want       string
		wantErr    bool
	}{
		{"defaults to previous week", "", "", "2024-01-01_2024-01-08", false},
		{"single day", "2024-02-03", "", "2024-02-03", false},
		{"explicit range", "2024-02-01", "2024-02-08", "2024-02-01_2024-02-08", false},
		{"end before start", "2024-02-08", "2024-02-01", "", true},
		{"bad date", "02/01/2024", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := parseWindow(tt.start, tt.end, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.Label() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, w.Label())
			}
		})
	}
}

func TestParseCountries(t *testing.T) {
	got := parseCountries(" za, my ,,be,ZA")
	if strings.Join(got, ",") != "ZA,MY,BE" {
		t.Errorf("unexpected countries %v", got)
	}
	if parseCountries("") != nil {
		t.Error("expected no countries for an empty flag")
	}
}

func TestPrintCountry_InspectsCohort(t *testing.T) {
	rep := &domain.CountryReport{
		Country: "ZA",
		Outcome: domain.OutcomeReported,
		Summary: domain.Summary{ActiveUsers: []domain.PlatformCount{{Platform: "sam", Count: 2}}},
		Linked: []domain.LinkedUser{
			{ActiveUser: domain.ActiveUser{Platform: "sam", Gateway: "gw", MSISDN: "27820000001"}, TotalTransactions: 3},
			{ActiveUser: domain.ActiveUser{Platform: "mcb", Gateway: "gw", MSISDN: "27820000002"}},
		},
	}
	filter, err := reconcile.ParseCohortFilter("sam\tgw")
	if err != nil {
		t.Fatalf("parsing filter: %v", err)
	}

	var buf bytes.Buffer
	if !printCountry(&buf, "ZA", countryRun{report: rep}, &filter) {
		t.Fatal("expected success")
	}

	out := buf.String()
	if !strings.Contains(out, "27820000001") || strings.Contains(out, "27820000002") {
		t.Errorf("expected only the sam user, got:\n%s", out)
	}
	if !strings.Contains(out, "1 users in cohort") {
		t.Errorf("missing cohort count in:\n%s", out)
	}
}

func TestPrintCountry_NotRun(t *testing.T) {
	var buf bytes.Buffer
	if printCountry(&buf, "BE", countryRun{}, nil) {
		t.Error("expected a country without a report to count as failed")
	}
}
