package application

import (
	"context"
	"time"

	"github.com/dmehra2102/storefront/internal/order/domain"
	recdomain "github.com/dmehra2102/storefront/internal/reconcile/domain"
	"github.com/dmehra2102/storefront/pkg/money"
)

// Catalog is the slice of the product store the reservation engine needs.
type Catalog interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.ProductSnapshot, error)
	// DecrementIfAvailable removes qty units only if at least qty remain, in
	// one atomic step. When it declines, available is the stock it saw.
	DecrementIfAvailable(ctx context.Context, productID string, qty int) (ok bool, available int, err error)
	Increment(ctx context.Context, productID string, qty int) error
}

type OrderRepository interface {
	// Create stores the order, its items and an OrderCreated event atomically.
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// UpdateStatus moves the order from -> to only if it is still in from.
	// swapped is false when another writer got there first.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time, ev domain.OrderStatusChanged) (swapped bool, err error)
	View(ctx context.Context, id string) (View, error)
	List(ctx context.Context, f Filter) ([]View, error)
	Revenue(ctx context.Context) (Revenue, error)
}

type ReconciliationRecorder interface {
	Record(ctx context.Context, r recdomain.StockReconciliation) error
}

type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (result string, fresh bool, err error)
	Complete(ctx context.Context, key, result string) error
	Abort(ctx context.Context, key string) error
}

// View is the read-side projection of an order with the names its items and
// owner resolve to at read time.
type View struct {
	Order        domain.Order
	UserEmail    string
	ProductNames map[string]string
}

type Filter struct {
	Status domain.Status
	UserID string
}

type Revenue struct {
	Total      money.Money
	OrderCount int
}
