package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Priya8975/broadcast-review/internal/config"
	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
	"github.com/go-sql-driver/mysql"
)

// unknownOperator replaces a missing schedule operator code.
const unknownOperator = "Unknown"

// SAM keeps one database per country, named after the lowercase country code.
const samActiveQuery = `
SELECT s.accountid, s.msisdn, s.serviceid, s.operator_code,
       sv.service_identifier1, sv.service_identifier2, s.gateway, s.status, s.rockman_id
FROM %[1]s.subscriptions s
JOIN %[1]s.services sv ON sv.serviceid = s.serviceid
WHERE s.status = 'A'
  AND s.subscribed_at < ?
  AND (s.unsubscribed_at IS NULL OR s.unsubscribed_at >= ?)`

const samScheduleQuery = `
SELECT sc.scheduleid, sc.serviceid, sc.operator_code, sc.tariff, sc.billing_days,
       sc.status, sc.updatedate
FROM %[1]s.schedules sc`

// MCB is a single shared database filtered by country code.
const mcbActiveQuery = `
SELECT sub.account_id, sub.msisdn, sub.service_id, sub.operator_code,
       svc.service_identifier1, svc.service_identifier2, sub.gateway, sub.status, sub.rockman_id
FROM subscriptions sub
JOIN services svc ON svc.id = sub.service_id
WHERE svc.country_code = ?
  AND sub.status = 'active'
  AND sub.created_at < ?
  AND (sub.cancelled_at IS NULL OR sub.cancelled_at >= ?)`

// PlatformSource reads active subscribers (and, for SAM, billing schedules)
// from a billing platform's MySQL server.
type PlatformSource struct {
	name string
	db   *sql.DB
}

// MySQLDSN builds the driver DSN for a platform server. database may be empty.
func MySQLDSN(src config.MySQLSource, database string) string {
	cfg := mysql.NewConfig()
	cfg.User = src.User
	cfg.Passwd = src.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(src.Host, strconv.Itoa(src.Port))
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// NewPlatformSource opens a pool against the platform server. name is
// domain.PlatformSAM or domain.PlatformMCB.
func NewPlatformSource(ctx context.Context, name string, src config.MySQLSource) (*PlatformSource, error) {
	database := ""
	if name == domain.PlatformMCB {
		database = "mcb"
	}

	db, err := sql.Open("mysql", MySQLDSN(src, database))
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", name, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", name, err)
	}

	return &PlatformSource{name: name, db: db}, nil
}

func (p *PlatformSource) Name() string {
	return p.name
}

func (p *PlatformSource) Close() error {
	return p.db.Close()
}

// CountryDatabase returns the SAM database of a country ("ZA" -> "zadb").
// Country codes must be two or three ASCII letters.
func CountryDatabase(country string) (string, error) {
	if len(country) < 2 || len(country) > 3 {
		return "", fmt.Errorf("invalid country code %q", country)
	}
	for _, r := range country {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", fmt.Errorf("invalid country code %q", country)
		}
	}
	return strings.ToLower(country) + "db", nil
}

// ActiveUsers returns the subscribers active at some point in the window.
// The platform column is left to reconcile.CombinePlatforms.
func (p *PlatformSource) ActiveUsers(ctx context.Context, country string, window domain.Window) ([]domain.ActiveUser, error) {
	var rows *sql.Rows
	var err error

	switch p.name {
	case domain.PlatformSAM:
		database, derr := CountryDatabase(country)
		if derr != nil {
			return nil, derr
		}
		rows, err = p.db.QueryContext(ctx, fmt.Sprintf(samActiveQuery, database), window.End, window.Start)
	default:
		rows, err = p.db.QueryContext(ctx, mcbActiveQuery, country, window.End, window.Start)
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s active users for %s: %w", p.name, country, err)
	}
	defer rows.Close()

	users := []domain.ActiveUser{}
	for rows.Next() {
		var r activeRow
		if err := rows.Scan(&r.accountID, &r.msisdn, &r.serviceID, &r.operatorCode,
			&r.identifier1, &r.identifier2, &r.gateway, &r.status, &r.rockmanID); err != nil {
			return nil, fmt.Errorf("scanning %s active user: %w", p.name, err)
		}
		users = append(users, r.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s active users: %w", p.name, err)
	}
	return users, nil
}

// Schedules returns the billing schedules of a country. Only SAM keeps
// schedules; other platforms return none.
func (p *PlatformSource) Schedules(ctx context.Context, country string, _ domain.Window) ([]domain.Schedule, error) {
	if p.name != domain.PlatformSAM {
		return []domain.Schedule{}, nil
	}

	database, err := CountryDatabase(country)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(samScheduleQuery, database))
	if err != nil {
		return nil, fmt.Errorf("querying schedules for %s: %w", country, err)
	}
	defer rows.Close()

	schedules := []domain.Schedule{}
	for rows.Next() {
		var r scheduleRow
		if err := rows.Scan(&r.scheduleID, &r.serviceID, &r.operatorCode, &r.tariff,
			&r.billingDays, &r.status, &r.updatedAt); err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		schedules = append(schedules, r.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading schedules: %w", err)
	}
	return schedules, nil
}

type activeRow struct {
	accountID, msisdn, serviceID, operatorCode sql.NullString
	identifier1, identifier2, gateway, status  sql.NullString
	rockmanID                                  sql.NullString
}

func (r activeRow) toDomain() domain.ActiveUser {
	u := domain.ActiveUser{
		AccountID:          reconcile.NormalizeIdentifier(r.accountID.String),
		MSISDN:             reconcile.NormalizeIdentifier(r.msisdn.String),
		ServiceID:          reconcile.NormalizeIdentifier(r.serviceID.String),
		OperatorCode:       r.operatorCode.String,
		ServiceIdentifier1: reconcile.NormalizeIdentifier(r.identifier1.String),
		ServiceIdentifier2: reconcile.NormalizeIdentifier(r.identifier2.String),
		Gateway:            r.gateway.String,
		Status:             r.status.String,
	}
	if r.rockmanID.Valid && r.rockmanID.String != "" {
		id := r.rockmanID.String
		u.RockmanID = &id
	}
	return u
}

type scheduleRow struct {
	scheduleID, serviceID, operatorCode, tariff sql.NullString
	billingDays, status                         sql.NullString
	updatedAt                                   sql.NullTime
}

func (r scheduleRow) toDomain() domain.Schedule {
	s := domain.Schedule{
		ScheduleID:   reconcile.NormalizeIdentifier(r.scheduleID.String),
		ServiceID:    reconcile.NormalizeIdentifier(r.serviceID.String),
		OperatorCode: r.operatorCode.String,
		Tariff:       reconcile.NormalizeIdentifier(r.tariff.String),
		Status:       r.status.String,
		UpdatedAt:    r.updatedAt.Time,
	}
	if !r.operatorCode.Valid {
		s.OperatorCode = unknownOperator
	}
	if r.billingDays.Valid {
		days := r.billingDays.String
		s.BillingDays = &days
	}
	return s
}
