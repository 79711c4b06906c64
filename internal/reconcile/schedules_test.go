package reconcile

import (
	"testing"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

func TestDedupeSchedules_ExplodesOperatorCodes(t *testing.T) {
	rows := []domain.Schedule{
		{ServiceID: "1", OperatorCode: "A,B", Status: domain.StatusInactive, UpdatedAt: day("2020-01-01")},
		{ServiceID: "1", OperatorCode: "A", Status: domain.StatusActive, UpdatedAt: day("2020-01-02")},
	}

	got := DedupeSchedules(rows)

	if len(got) != 2 {
		t.Fatalf("expected 2 canonical schedules, got %d", len(got))
	}
	if got[0].OperatorCode != "A" || got[0].Status != domain.StatusActive {
		t.Errorf("expected (A, active) first, got (%s, %s)", got[0].OperatorCode, got[0].Status)
	}
	if got[1].OperatorCode != "B" || got[1].Status != domain.StatusInactive {
		t.Errorf("expected (B, inactive) second, got (%s, %s)", got[1].OperatorCode, got[1].Status)
	}
}

func TestDedupeSchedules_TieBreaks(t *testing.T) {
	tests := []struct {
		name       string
		rows       []domain.Schedule
		wantTariff string
	}{
		{
			name: "single row kept",
			rows: []domain.Schedule{
				{ServiceID: "1", OperatorCode: "X", Tariff: "10", Status: "P", UpdatedAt: day("2020-01-01")},
			},
			wantTariff: "10",
		},
		{
			name: "lone active row beats newer inactive rows",
			rows: []domain.Schedule{
				{ServiceID: "1", OperatorCode: "X", Tariff: "10", Status: domain.StatusActive, UpdatedAt: day("2020-01-01")},
				{ServiceID: "1", OperatorCode: "X", Tariff: "20", Status: domain.StatusInactive, UpdatedAt: day("2021-01-01")},
			},
			wantTariff: "10",
		},
		{
			name: "no active rows picks latest overall",
			rows: []domain.Schedule{
				{ServiceID: "1", OperatorCode: "X", Tariff: "10", Status: domain.StatusInactive, UpdatedAt: day("2020-03-01")},
				{ServiceID: "1", OperatorCode: "X", Tariff: "20", Status: domain.StatusInactive, UpdatedAt: day("2020-01-01")},
			},
			wantTariff: "10",
		},
		{
			name: "several active rows picks latest active",
			rows: []domain.Schedule{
				{ServiceID: "1", OperatorCode: "X", Tariff: "10", Status: domain.StatusActive, UpdatedAt: day("2020-01-01")},
				{ServiceID: "1", OperatorCode: "X", Tariff: "20", Status: domain.StatusActive, UpdatedAt: day("2020-02-01")},
				{ServiceID: "1", OperatorCode: "X", Tariff: "30", Status: domain.StatusInactive, UpdatedAt: day("2020-06-01")},
			},
			wantTariff: "20",
		},
		{
			name: "equal timestamps keep the later row",
			rows: []domain.Schedule{
				{ServiceID: "1", OperatorCode: "X", Tariff: "10", Status: domain.StatusInactive, UpdatedAt: day("2020-01-01")},
				{ServiceID: "1", OperatorCode: "X", Tariff: "20", Status: domain.StatusInactive, UpdatedAt: day("2020-01-01")},
			},
			wantTariff: "20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupeSchedules(tt.rows)
			if len(got) != 1 {
				t.Fatalf("expected 1 schedule, got %d", len(got))
			}
			if got[0].Tariff != tt.wantTariff {
				t.Errorf("expected tariff %q, got %q", tt.wantTariff, got[0].Tariff)
			}
		})
	}
}

func TestDedupeSchedules_OrderFollowsFirstAppearance(t *testing.T) {
	rows := []domain.Schedule{
		{ServiceID: "2", OperatorCode: "Z"},
		{ServiceID: "1", OperatorCode: "B,A"},
		{ServiceID: "2", OperatorCode: "Y"},
	}

	got := DedupeSchedules(rows)

	want := []scheduleKey{{"2", "Z"}, {"2", "Y"}, {"1", "B"}, {"1", "A"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d schedules, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].ServiceID != w.serviceID || got[i].OperatorCode != w.operatorCode {
			t.Errorf("position %d: expected %v, got (%s, %s)", i, w, got[i].ServiceID, got[i].OperatorCode)
		}
	}
}

func TestDedupeSchedules_DoesNotMutateInput(t *testing.T) {
	rows := []domain.Schedule{{ServiceID: "1", OperatorCode: "A,B"}}

	DedupeSchedules(rows)

	if rows[0].OperatorCode != "A,B" {
		t.Errorf("input was modified: operator code is %q", rows[0].OperatorCode)
	}
}

func TestDedupeSchedules_Empty(t *testing.T) {
	if got := DedupeSchedules(nil); len(got) != 0 {
		t.Errorf("expected no schedules, got %d", len(got))
	}
}
