package application

import (
	"context"
	"time"

	"github.com/dmehra2102/storefront/internal/reconcile/domain"
)

type Store interface {
	// Apply increments stock for every item of a pending reconciliation and
	// marks it applied in one transaction. applied is false when the record
	// was already applied; productIDs lists the products actually touched.
	Apply(ctx context.Context, id string, at time.Time) (applied bool, productIDs []string, err error)
	Pending(ctx context.Context, limit int) ([]domain.StockReconciliation, error)
}

// CacheInvalidator drops cached product reads after stock moved.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, ids ...string)
}
