package store

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/broadcast-review/internal/config"
)

func TestCountryDatabase(t *testing.T) {
	tests := []struct {
		country string
		want    string
		wantErr bool
	}{
		{"ZA", "zadb", false},
		{"be", "bedb", false},
		{"Z", "", true},
		{"ZA; DROP TABLE x", "", true},
		{"Z1", "", true},
	}

	for _, tt := range tests {
		got, err := CountryDatabase(tt.country)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state: %v", tt.country, err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.country, tt.want, got)
		}
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(config.MySQLSource{Host: "sam.internal", Port: 3307, User: "bart", Password: "pw"}, "zadb")

	if !strings.HasPrefix(dsn, "bart:pw@tcp(sam.internal:3307)/zadb?") {
		t.Errorf("unexpected dsn: %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime in dsn: %s", dsn)
	}
}

func TestScheduleRow_MissingOperatorCode(t *testing.T) {
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	row := scheduleRow{
		scheduleID:  sql.NullString{String: "7.0", Valid: true},
		serviceID:   sql.NullString{String: "12", Valid: true},
		tariff:      sql.NullString{String: "150", Valid: true},
		billingDays: sql.NullString{String: "1,3", Valid: true},
		status:      sql.NullString{String: "A", Valid: true},
		updatedAt:   sql.NullTime{Time: updated, Valid: true},
	}

	s := row.toDomain()

	if s.OperatorCode != unknownOperator {
		t.Errorf("expected %q, got %q", unknownOperator, s.OperatorCode)
	}
	if s.ScheduleID != "7" {
		t.Errorf("expected normalized schedule id, got %q", s.ScheduleID)
	}
	if s.BillingDays == nil || *s.BillingDays != "1,3" {
		t.Errorf("unexpected billing days: %v", s.BillingDays)
	}
	if !s.UpdatedAt.Equal(updated) {
		t.Errorf("unexpected update time: %v", s.UpdatedAt)
	}

	row.billingDays = sql.NullString{}
	if row.toDomain().BillingDays != nil {
		t.Error("expected nil billing days for NULL")
	}
}

func TestActiveRow_RockmanID(t *testing.T) {
	row := activeRow{
		msisdn:    sql.NullString{String: "27820000000", Valid: true},
		rockmanID: sql.NullString{String: "", Valid: true},
	}
	if row.toDomain().RockmanID != nil {
		t.Error("expected empty rockman id to be treated as missing")
	}

	row.rockmanID = sql.NullString{String: "r-1", Valid: true}
	if got := row.toDomain().RockmanID; got == nil || *got != "r-1" {
		t.Errorf("unexpected rockman id: %v", got)
	}
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "001_create_report_runs.up.sql" {
		t.Errorf("unexpected migrations: %v", names)
	}
}
