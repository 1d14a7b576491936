package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	recdomain "github.com/dmehra2102/storefront/internal/reconcile/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/metrics"
	"github.com/dmehra2102/storefront/pkg/money"
)

// headerAuth builds the principal from X-User and X-Role.
type headerAuth struct{}

func (headerAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User")
		if id == "" {
			httpx.WriteError(w, r, logging.Discard(), apperr.Unauthenticated("missing token"))
			return
		}
		p := access.Principal{ID: id, Role: access.Role(r.Header.Get("X-Role")), Email: id + "@example.com"}
		next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), p)))
	})
}

func (a headerAuth) Optional(next http.Handler) http.Handler { return a.Require(next) }

type memCatalog struct {
	mu       sync.Mutex
	products map[string]domain.ProductSnapshot
}

func (c *memCatalog) FindByIDs(_ context.Context, ids []string) (map[string]domain.ProductSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.ProductSnapshot{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *memCatalog) DecrementIfAvailable(_ context.Context, id string, qty int) (bool, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	if p.Stock < qty {
		return false, p.Stock, nil
	}
	p.Stock -= qty
	c.products[id] = p
	return true, p.Stock, nil
}

func (c *memCatalog) Increment(_ context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Stock += qty
	c.products[id] = p
	return nil
}

func (c *memCatalog) stock(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func (m *memOrders) Create(_ context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, from, to domain.Status, at time.Time, _ domain.OrderStatusChanged) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	if o.Status != from {
		return false, nil
	}
	o.Status, o.UpdatedAt = to, at
	m.orders[id] = o
	return true, nil
}

func (m *memOrders) View(ctx context.Context, id string) (application.View, error) {
	o, err := m.Get(ctx, id)
	if err != nil {
		return application.View{}, err
	}
	return application.View{Order: o, UserEmail: o.UserID + "@example.com"}, nil
}

func (m *memOrders) List(_ context.Context, f application.Filter) ([]application.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []application.View
	for _, o := range m.orders {
		if (f.UserID == "" || o.UserID == f.UserID) && (f.Status == "" || o.Status == f.Status) {
			out = append(out, application.View{Order: o})
		}
	}
	return out, nil
}

func (m *memOrders) Revenue(context.Context) (application.Revenue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rev application.Revenue
	for _, o := range m.orders {
		if o.Status == domain.StatusCompleted {
			rev.Total = rev.Total.Add(o.Total)
			rev.OrderCount++
		}
	}
	return rev, nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, recdomain.StockReconciliation) error { return nil }

type fixture struct {
	srv     *httptest.Server
	catalog *memCatalog
	lamp    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	lamp := uuid.NewString()
	catalog := &memCatalog{products: map[string]domain.ProductSnapshot{
		lamp: {ID: lamp, Name: "Desk Lamp", Price: money.MustParse("10"), Stock: 3, Active: true},
	}}
	svc := application.NewService(logging.Discard(), &memOrders{orders: map[string]domain.Order{}},
		catalog, nopRecorder{}, nil, metrics.New(), application.Options{})

	r := chi.NewRouter()
	r.Mount("/api/orders", NewHandler(logging.Discard(), svc, headerAuth{}).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fixture{srv: srv, catalog: catalog, lamp: lamp}
}

type caller struct{ id, role string }

var (
	alice = caller{id: uuid.NewString(), role: "user"}
	bob   = caller{id: uuid.NewString(), role: "user"}
	admin = caller{id: uuid.NewString(), role: "admin"}
)

func (f fixture) do(t *testing.T, c caller, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if c.id != "" {
		req.Header.Set("X-User", c.id)
		req.Header.Set("X-Role", c.role)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, caller{}, http.MethodPost, "/api/orders", `{"items":[]}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := f.do(t, alice, http.MethodPost, "/api/orders",
		`{"items":[{"productId":"`+f.lamp+`","quantity":"2"}],"paymentMethod":"paypal","shippingAddress":{"city":"Lisbon"}}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Order created successfully", body["message"])

	order := body["order"].(map[string]any)
	assert.Equal(t, 20.0, order["totalPrice"])
	assert.Equal(t, 2.0, order["itemCount"])
	assert.Equal(t, "created", order["status"])
	assert.Equal(t, "paypal", order["paymentMethod"])
	assert.True(t, strings.HasPrefix(order["orderNumber"].(string), "ORD-"))
	item := order["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Desk Lamp", item["productName"])
	assert.Equal(t, 1, f.catalog.stock(f.lamp))
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, alice, http.MethodPost, "/api/orders",
		`{"items":[{"productId":"`+f.lamp+`","quantity":5}]}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Insufficient stock", body["error"])
	shortage := body["details"].([]any)[0].(map[string]any)
	assert.Equal(t, 3.0, shortage["available"])
	assert.Equal(t, 5.0, shortage["requested"])

	status, body = f.do(t, alice, http.MethodPost, "/api/orders",
		`{"items":[{"productId":"`+f.lamp+`","quantity":"two"},{"quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.ElementsMatch(t, []any{
		"Item 1: quantity must be an integer",
		"Item 2: productId is required",
	}, body["details"])

	status, _ = f.do(t, alice, http.MethodPost, "/api/orders",
		`{"items":[{"productId":"`+uuid.NewString()+`","quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 3, f.catalog.stock(f.lamp))
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, alice, http.MethodPost, "/api/orders",
		`{"items":[{"productId":"`+f.lamp+`","quantity":1}]}`)
	id := body["order"].(map[string]any)["id"].(string)

	status, _ := f.do(t, bob, http.MethodGet, "/api/orders/"+id, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(t, alice, http.MethodGet, "/api/orders/my", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["count"])

	status, _ = f.do(t, alice, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(t, admin, http.MethodGet, "/api/orders?status=shipped", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, alice, http.MethodPatch, "/api/orders/"+id+"/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(t, admin, http.MethodPatch, "/api/orders/"+id+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["order"].(map[string]any)["status"])

	status, body = f.do(t, alice, http.MethodPost, "/api/orders/"+id+"/cancel", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]any{"from": "completed", "to": "cancelled"}, body["details"])
	assert.Equal(t, 2, f.catalog.stock(f.lamp))

	status, body = f.do(t, admin, http.MethodGet, "/api/orders/stats/revenue", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10.0, body["totalRevenue"])
	assert.Equal(t, 1.0, body["orderCount"])
}

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, alice, http.MethodPost, "/api/orders",
		`{"items":[{"productId":"`+f.lamp+`","quantity":2}]}`)
	id := body["order"].(map[string]any)["id"].(string)
	require.Equal(t, 1, f.catalog.stock(f.lamp))

	status, body := f.do(t, alice, http.MethodPost, "/api/orders/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", body["order"].(map[string]any)["status"])
	assert.Equal(t, 3, f.catalog.stock(f.lamp))

	status, _ = f.do(t, alice, http.MethodPost, "/api/orders/"+id+"/cancel", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 3, f.catalog.stock(f.lamp))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		wantNil bool
		wantNaN bool
		want    float64
	}{
		{raw: "", wantNil: true},
		{raw: "null", wantNil: true},
		{raw: "3", want: 3},
		{raw: "2.5", want: 2.5},
		{raw: `" 4 "`, want: 4},
		{raw: `"four"`, wantNaN: true},
		{raw: "true", wantNaN: true},
		{raw: "[1]", wantNaN: true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got := parseQuantity(json.RawMessage(tc.raw))
			switch {
			case tc.wantNil:
				assert.Nil(t, got)
			case tc.wantNaN:
				require.NotNil(t, got)
				assert.True(t, math.IsNaN(*got))
			default:
				require.NotNil(t, got)
				assert.Equal(t, tc.want, *got)
			}
		})
	}
}
