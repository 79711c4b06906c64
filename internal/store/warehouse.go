package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionsPerUserQuery = `
SELECT msisdn::text, platform, COALESCE(service_identifier1::text, ''),
       COALESCE(service_identifier2::text, ''), COALESCE(tariff::text, ''), rockman_id,
       COUNT(*) AS total_transactions,
       COUNT(*) FILTER (WHERE delivered) AS delivered_transactions
FROM transactions
WHERE country_code = $1
  AND created_at >= $2
  AND created_at < $3
GROUP BY 1, 2, 3, 4, 5, 6`

// Warehouse reads aggregated billing transactions from the analytics warehouse.
type Warehouse struct {
	pool *pgxpool.Pool
}

func NewWarehouse(ctx context.Context, url string) (*Warehouse, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to warehouse: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging warehouse: %w", err)
	}
	return &Warehouse{pool: pool}, nil
}

func (w *Warehouse) Close() {
	w.pool.Close()
}

// TransactionsPerUser returns one row per (msisdn, platform, identifiers,
// tariff, rockman id) with the window's transaction counts.
func (w *Warehouse) TransactionsPerUser(ctx context.Context, country string, window domain.Window) ([]domain.Transaction, error) {
	rows, err := w.pool.Query(ctx, transactionsPerUserQuery, country, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for %s: %w", country, err)
	}

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var t domain.Transaction
		err := row.Scan(&t.MSISDN, &t.Platform, &t.ServiceIdentifier1, &t.ServiceIdentifier2,
			&t.Tariff, &t.RockmanID, &t.TotalTransactions, &t.DeliveredTransactions)
		t.MSISDN = reconcile.NormalizeIdentifier(t.MSISDN)
		t.ServiceIdentifier1 = reconcile.NormalizeIdentifier(t.ServiceIdentifier1)
		t.ServiceIdentifier2 = reconcile.NormalizeIdentifier(t.ServiceIdentifier2)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning transactions for %s: %w", country, err)
	}
	return txs, nil
}
