// Package catalog adapts the catalog context's stock operations to the
// reservation engine's Catalog port.
package catalog

import (
	"context"

	catdomain "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
)

// Products is satisfied by the catalog application service.
type Products interface {
	FindByIDs(ctx context.Context, ids []string) ([]catdomain.Product, error)
	DecrementIfAvailable(ctx context.Context, id string, qty int) (bool, int, error)
	Increment(ctx context.Context, id string, qty int) error
}

type Adapter struct {
	products Products
}

func NewAdapter(products Products) *Adapter {
	return &Adapter{products: products}
}

func (a *Adapter) FindByIDs(ctx context.Context, ids []string) (map[string]domain.ProductSnapshot, error) {
	found, err := a.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.ProductSnapshot, len(found))
	for _, p := range found {
		out[p.ID] = domain.ProductSnapshot{
			ID:     p.ID,
			Name:   p.Name,
			Price:  p.Price,
			Stock:  p.Stock,
			Active: p.Active,
		}
	}
	return out, nil
}

func (a *Adapter) DecrementIfAvailable(ctx context.Context, productID string, qty int) (bool, int, error) {
	return a.products.DecrementIfAvailable(ctx, productID, qty)
}

func (a *Adapter) Increment(ctx context.Context, productID string, qty int) error {
	return a.products.Increment(ctx, productID, qty)
}
