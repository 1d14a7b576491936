package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/reconcile/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

// Record stores the reconciliation and its StockReconciliationRequired event
// in one transaction.
func (s *Store) Record(ctx context.Context, r domain.StockReconciliation) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	ev, err := outbox.NewEvent(domain.AggregateReconciliation, r.ID, domain.EventReconciliationRequired, r.Event(), tracing.Traceparent(ctx))
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO stock_reconciliations (id, order_id, reason, items, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.OrderID, r.Reason, items, string(r.Status), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	if err := outbox.Append(ctx, tx, ev); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Apply(ctx context.Context, id string, at time.Time) (bool, []string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		raw    []byte
		status string
	)
	err = tx.QueryRow(ctx, `SELECT items, status FROM stock_reconciliations WHERE id = $1 FOR UPDATE`, id).Scan(&raw, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, apperr.NotFound("stock reconciliation", id)
	}
	if err != nil {
		return false, nil, err
	}
	if domain.Status(status) == domain.StatusApplied {
		return false, nil, nil
	}

	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return false, nil, fmt.Errorf("decode items of %s: %w", id, err)
	}

	touched := make([]string, 0, len(items))
	for _, it := range items {
		tag, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1`, it.ProductID, it.Quantity, at)
		if err != nil {
			return false, nil, fmt.Errorf("increment %s: %w", it.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			s.log.Warn("reconciliation product no longer exists", "reconciliation_id", id, "product_id", it.ProductID, "quantity", it.Quantity)
			continue
		}
		touched = append(touched, it.ProductID)
	}

	if _, err := tx.Exec(ctx, `UPDATE stock_reconciliations SET status = 'applied', applied_at = $2 WHERE id = $1`, id, at); err != nil {
		return false, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, touched, nil
}

func (s *Store) Pending(ctx context.Context, limit int) ([]domain.StockReconciliation, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, order_id, reason, items, status, created_at
		FROM stock_reconciliations WHERE status = 'pending' ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StockReconciliation
	for rows.Next() {
		var (
			r      domain.StockReconciliation
			raw    []byte
			status string
		)
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Reason, &raw, &status, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &r.Items); err != nil {
			return nil, fmt.Errorf("decode items of %s: %w", r.ID, err)
		}
		r.Status = domain.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
