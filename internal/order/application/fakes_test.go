package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/storefront/internal/order/domain"
	recdomain "github.com/dmehra2102/storefront/internal/reconcile/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/money"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.ProductSnapshot

	// failIncrements makes the next n Increment calls fail.
	failIncrements int
	increments     int
	// beforeDecrement runs inside the lock, letting a test move stock
	// between the snapshot read and the guarded decrement.
	beforeDecrement func(id string)
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]domain.ProductSnapshot{}}
}

func (c *fakeCatalog) add(id, name, price string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id] = domain.ProductSnapshot{ID: id, Name: name, Price: money.MustParse(price), Stock: stock, Active: true}
}

func (c *fakeCatalog) stock(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *fakeCatalog) setStock(id string, n int) {
	p := c.products[id]
	p.Stock = n
	c.products[id] = p
}

func (c *fakeCatalog) FindByIDs(_ context.Context, ids []string) (map[string]domain.ProductSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.ProductSnapshot, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *fakeCatalog) DecrementIfAvailable(_ context.Context, id string, qty int) (bool, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.beforeDecrement != nil {
		c.beforeDecrement(id)
	}
	p, ok := c.products[id]
	if !ok {
		return false, 0, nil
	}
	if p.Stock < qty {
		return false, p.Stock, nil
	}
	p.Stock -= qty
	c.products[id] = p
	return true, p.Stock, nil
}

func (c *fakeCatalog) Increment(ctx context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.increments++
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.failIncrements > 0 {
		c.failIncrements--
		return errors.New("catalog unavailable")
	}
	p := c.products[id]
	p.Stock += qty
	c.products[id] = p
	return nil
}

type fakeRepo struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	orders  map[string]domain.Order
	events  []any

	createErr error
	// beforeUpdate runs inside the lock ahead of the status compare.
	beforeUpdate func(id string)
	// afterCreate runs once the order is stored.
	afterCreate func()
}

func newFakeRepo(c *fakeCatalog) *fakeRepo {
	return &fakeRepo{catalog: c, orders: map[string]domain.Order{}}
}

func (r *fakeRepo) Create(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.orders[o.ID] = o
	r.events = append(r.events, domain.NewOrderCreated(o))
	if r.afterCreate != nil {
		r.afterCreate()
	}
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, from, to domain.Status, at time.Time, ev domain.OrderStatusChanged) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeUpdate != nil {
		r.beforeUpdate(id)
	}
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	r.orders[id] = o
	r.events = append(r.events, ev)
	return true, nil
}

func (r *fakeRepo) View(ctx context.Context, id string) (View, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return r.view(o), nil
}

func (r *fakeRepo) view(o domain.Order) View {
	names := map[string]string{}
	r.catalog.mu.Lock()
	for _, it := range o.Items {
		names[it.ProductID] = r.catalog.products[it.ProductID].Name
	}
	r.catalog.mu.Unlock()
	return View{Order: o, ProductNames: names}
}

func (r *fakeRepo) List(_ context.Context, f Filter) ([]View, error) {
	r.mu.Lock()
	var out []domain.Order
	for _, o := range r.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	views := make([]View, 0, len(out))
	for _, o := range out {
		views = append(views, r.view(o))
	}
	return views, nil
}

func (r *fakeRepo) Revenue(context.Context) (Revenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rev Revenue
	for _, o := range r.orders {
		if o.Status == domain.StatusCompleted {
			rev.Total = rev.Total.Add(o.Total)
			rev.OrderCount++
		}
	}
	return rev, nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recdomain.StockReconciliation
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, r recdomain.StockReconciliation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

type fakeIdem struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeIdem() *fakeIdem { return &fakeIdem{keys: map[string]string{}} }

func (f *fakeIdem) Begin(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	if !ok {
		f.keys[key] = "pending"
		return "", true, nil
	}
	if v == "pending" {
		return "", false, idempotency.ErrInFlight
	}
	return v, false, nil
}

func (f *fakeIdem) Complete(ctx context.Context, key, result string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = result
	return nil
}

func (f *fakeIdem) Abort(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}
