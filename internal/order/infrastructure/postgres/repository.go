package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/money"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, total_cents, status, shipping_address, payment_method, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.UserID, o.Total.Cents(), o.Status, o.Details.ShippingAddress, o.Details.PaymentMethod, o.Details.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, position, product_id, quantity, price_cents) VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, item.ProductID, item.Quantity, item.PriceAtPurchase.Cents())
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	ev, err := outbox.NewEvent(domain.AggregateOrder, o.ID, domain.EventOrderCreated, domain.NewOrderCreated(o), tracing.Traceparent(ctx))
	if err != nil {
		return err
	}
	if err = outbox.Append(ctx, tx, ev); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return tx.Commit(ctx)
}

// UpdateStatus is a compare-and-swap on the status column; the outbox event
// is written only if the swap happened.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time, change domain.OrderStatusChanged) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`, id, from, to, at)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	ev, err := outbox.NewEvent(domain.AggregateOrder, id, domain.EventOrderStatusChanged, change, tracing.Traceparent(ctx))
	if err != nil {
		return false, err
	}
	if err = outbox.Append(ctx, tx, ev); err != nil {
		return false, fmt.Errorf("append outbox: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

const orderColumns = `o.id, o.user_id, o.total_cents, o.status, o.shipping_address, o.payment_method, o.notes, o.created_at, o.updated_at, COALESCE(u.email, '')`

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	v, err := r.View(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return v.Order, nil
}

func (r *Repository) View(ctx context.Context, id string) (application.View, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o LEFT JOIN users u ON u.id = o.user_id WHERE o.id=$1`, id)
	v, err := scanView(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return application.View{}, apperr.NotFound("order", id)
	}
	if err != nil {
		return application.View{}, err
	}

	views := []application.View{v}
	if err := r.loadItems(ctx, views); err != nil {
		return application.View{}, err
	}
	return views[0], nil
}

// List returns matching orders newest first with item product names and the
// owner's email resolved.
func (r *Repository) List(ctx context.Context, f application.Filter) ([]application.View, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	q := `SELECT ` + orderColumns + ` FROM orders o LEFT JOIN users u ON u.id = o.user_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY o.created_at DESC, o.id"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []application.View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, views); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *Repository) Revenue(ctx context.Context) (application.Revenue, error) {
	var cents int64
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_cents), 0), COUNT(*) FROM orders WHERE status = 'completed'`).Scan(&cents, &count)
	if err != nil {
		return application.Revenue{}, err
	}
	return application.Revenue{Total: money.FromCents(cents), OrderCount: count}, nil
}

func (r *Repository) loadItems(ctx context.Context, views []application.View) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]string, 0, len(views))
	byID := make(map[string]int, len(views))
	for i, v := range views {
		ids = append(ids, v.Order.ID)
		byID[v.Order.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, oi.price_cents, COALESCE(p.name, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID, productID, name string
			qty                      int
			cents                    int64
		)
		if err := rows.Scan(&orderID, &productID, &qty, &cents, &name); err != nil {
			return err
		}
		v := &views[byID[orderID]]
		v.Order.Items = append(v.Order.Items, domain.Item{ProductID: productID, Quantity: qty, PriceAtPurchase: money.FromCents(cents)})
		if name != "" {
			v.ProductNames[productID] = name
		}
	}
	return rows.Err()
}

func scanView(row pgx.Row) (application.View, error) {
	var (
		o     domain.Order
		cents int64
		email string
	)
	err := row.Scan(&o.ID, &o.UserID, &cents, &o.Status, &o.Details.ShippingAddress, &o.Details.PaymentMethod, &o.Details.Notes, &o.CreatedAt, &o.UpdatedAt, &email)
	if err != nil {
		return application.View{}, err
	}
	o.Total = money.FromCents(cents)
	return application.View{Order: o, UserEmail: email, ProductNames: map[string]string{}}, nil
}
