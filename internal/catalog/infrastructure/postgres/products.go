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

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/money"
)

const productColumns = `id, name, description, category, price_cents, stock, image_url, featured, active, created_at, updated_at`

type ProductRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewProductRepository(log *slog.Logger, pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{log: log, pool: pool}
}

func (r *ProductRepository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (`+productColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Name, p.Description, p.Category, p.Price.Cents(), p.Stock, p.ImageURL, p.Featured, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.NotFound("product", id)
	}
	return p, err
}

// Update writes only the fields present in patch; stock in particular is
// left to the guarded decrement unless an operator sets it explicitly.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.Patch, at time.Time) (domain.Product, error) {
	var cents *int64
	if patch.Price != nil {
		c := patch.Price.Cents()
		cents = &c
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			category    = COALESCE($4, category),
			price_cents = COALESCE($5, price_cents),
			stock       = COALESCE($6, stock),
			image_url   = COALESCE($7, image_url),
			featured    = COALESCE($8, featured),
			active      = COALESCE($9, active),
			updated_at  = $10
		WHERE id = $1
		RETURNING `+productColumns,
		id, patch.Name, patch.Description, patch.Category, cents, patch.Stock, patch.ImageURL, patch.Featured, patch.Active, at)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.NotFound("product", id)
	}
	return p, err
}

// Delete relies on the reviews foreign key cascading.
func (r *ProductRepository) Delete(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `DELETE FROM products WHERE id=$1 RETURNING `+productColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.NotFound("product", id)
	}
	return p, err
}

func (r *ProductRepository) List(ctx context.Context, f domain.Filter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeInactive {
		where = append(where, "active")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.MinPrice != nil {
		where = append(where, "price_cents >= "+arg(f.MinPrice.Cents()))
	}
	if f.MaxPrice != nil {
		where = append(where, "price_cents <= "+arg(f.MaxPrice.Cents()))
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Featured != nil {
		where = append(where, "featured = "+arg(*f.Featured))
	}
	if f.InStock {
		where = append(where, "stock > 0")
	}

	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id"

	return r.query(ctx, q, args...)
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
}

// DecrementIfAvailable is the single guarded write that keeps stock from
// going negative under concurrent reservations. Inactive products are never
// reserved and report no available stock.
func (r *ProductRepository) DecrementIfAvailable(ctx context.Context, id string, qty int) (bool, int, error) {
	var left int
	err := r.pool.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND active AND stock >= $2
		RETURNING stock`, id, qty).Scan(&left)
	if err == nil {
		return true, left, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, err
	}

	var available int
	err = r.pool.QueryRow(ctx, `SELECT CASE WHEN active THEN stock ELSE 0 END FROM products WHERE id=$1`, id).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return false, available, nil
}

func (r *ProductRepository) Increment(ctx context.Context, id string, qty int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

func (r *ProductRepository) Stats(ctx context.Context) (domain.Stats, error) {
	s := domain.Stats{ByCategory: map[domain.Category]int{}}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(stock), 0), COUNT(*) FILTER (WHERE stock = 0)
		FROM products`).Scan(&s.TotalProducts, &s.TotalStock, &s.OutOfStock)
	if err != nil {
		return domain.Stats{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT category, COUNT(*) FROM products GROUP BY category`)
	if err != nil {
		return domain.Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Category
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return domain.Stats{}, err
		}
		s.ByCategory[c] = n
	}
	return s, rows.Err()
}

func (r *ProductRepository) query(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	var cents int64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &cents, &p.Stock, &p.ImageURL, &p.Featured, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = money.FromCents(cents)
	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
