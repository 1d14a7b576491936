package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

const reviewSelect = `SELECT r.id, r.product_id, COALESCE(p.name, ''), r.username, r.rating, r.comment, r.created_at
	FROM reviews r LEFT JOIN products p ON p.id = r.product_id`

type ReviewRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewReviewRepository(log *slog.Logger, pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{log: log, pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, rv domain.Review) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO reviews (id, product_id, username, rating, comment, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		rv.ID, rv.ProductID, rv.Username, rv.Rating, rv.Comment, rv.CreatedAt)
	return err
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Review{}, apperr.NotFound("review", id)
	}
	return rv, err
}

func (r *ReviewRepository) List(ctx context.Context, productID string) ([]domain.Review, error) {
	q := reviewSelect
	var args []any
	if productID != "" {
		q += ` WHERE r.product_id = $1`
		args = append(args, productID)
	}
	q += ` ORDER BY r.created_at DESC, r.id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) (domain.Review, error) {
	row := r.pool.QueryRow(ctx, `
		WITH r AS (DELETE FROM reviews WHERE id = $1 RETURNING *)
		SELECT r.id, r.product_id, COALESCE(p.name, ''), r.username, r.rating, r.comment, r.created_at
		FROM r LEFT JOIN products p ON p.id = r.product_id`, id)
	rv, err := scanReview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Review{}, apperr.NotFound("review", id)
	}
	return rv, err
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.ProductName, &rv.Username, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}
