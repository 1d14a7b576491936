package application

import (
	"context"
	"time"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, id string, patch domain.Patch, at time.Time) (domain.Product, error)
	// Delete removes the product and its reviews.
	Delete(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	DecrementIfAvailable(ctx context.Context, id string, qty int) (ok bool, available int, err error)
	Increment(ctx context.Context, id string, qty int) error
	Stats(ctx context.Context) (domain.Stats, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r domain.Review) error
	Get(ctx context.Context, id string) (domain.Review, error)
	// List returns reviews newest first, for one product when productID is set.
	List(ctx context.Context, productID string) ([]domain.Review, error)
	Delete(ctx context.Context, id string) (domain.Review, error)
}

// ProductCache is a best-effort read cache; misses and failures fall through
// to the repository.
type ProductCache interface {
	Get(ctx context.Context, id string) (domain.Product, bool)
	Set(ctx context.Context, p domain.Product)
	Invalidate(ctx context.Context, ids ...string)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (domain.Product, bool) { return domain.Product{}, false }
func (noopCache) Set(context.Context, domain.Product)                {}
func (noopCache) Invalidate(context.Context, ...string)              {}
