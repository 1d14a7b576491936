package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/money"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	auth    httpx.Authenticator
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, auth httpx.Authenticator) *Handler {
	return &Handler{
		log:     log,
		service: service,
		auth:    auth,
		tracer:  otel.Tracer("order-http"),
	}
}

type createOrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  json.RawMessage `json:"quantity"`
}

type createOrderReq struct {
	Items           []createOrderItem       `json:"items"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                  `json:"paymentMethod"`
	Notes           string                  `json:"notes"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ProductID       string      `json:"productId"`
	ProductName     string      `json:"productName,omitempty"`
	Quantity        int         `json:"quantity"`
	PriceAtPurchase money.Money `json:"priceAtPurchase"`
}

type orderResponse struct {
	ID              string                  `json:"id"`
	OrderNumber     string                  `json:"orderNumber"`
	UserID          string                  `json:"userId"`
	UserEmail       string                  `json:"userEmail,omitempty"`
	Items           []orderItemResponse     `json:"items"`
	TotalPrice      money.Money             `json:"totalPrice"`
	ItemCount       int                     `json:"itemCount"`
	Status          domain.Status           `json:"status"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   domain.PaymentMethod    `json:"paymentMethod"`
	Notes           string                  `json:"notes,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

func toResponse(v application.View) orderResponse {
	o := v.Order
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:       it.ProductID,
			ProductName:     v.ProductNames[it.ProductID],
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number(),
		UserID:          o.UserID,
		UserEmail:       v.UserEmail,
		Items:           items,
		TotalPrice:      o.Total,
		ItemCount:       o.ItemCount(),
		Status:          o.Status,
		ShippingAddress: o.Details.ShippingAddress,
		PaymentMethod:   o.Details.PaymentMethod,
		Notes:           o.Details.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toResponses(views []application.View) []orderResponse {
	out := make([]orderResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toResponse(v))
	}
	return out
}

// Routes is mounted under /api/orders; every route needs a caller.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.auth.Require)

	r.Post("/", h.createOrder)
	r.Get("/", h.listAllOrders)
	r.Get("/my", h.listMyOrders)
	r.Get("/stats/revenue", h.revenue)
	r.Get("/{id}", h.getOrder)
	r.Patch("/{id}/status", h.updateStatus)
	r.Post("/{id}/cancel", h.cancelOrder)
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	items := make([]domain.RequestedItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.RequestedItem{
			ProductID: strings.TrimSpace(it.ProductID),
			Quantity:  parseQuantity(it.Quantity),
		})
	}
	in := application.CreateOrderInput{
		Items: items,
		Details: domain.Details{
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
			Notes:           req.Notes,
		},
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	}

	v, err := h.service.CreateOrder(ctx, principal(r), in)
	if err != nil {
		span.RecordError(err)
		httpx.WriteError(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", v.Order.ID))

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   toResponse(v),
	})
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListMyOrders")
	defer span.End()

	views, err := h.service.ListMyOrders(ctx, principal(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	out := toResponses(views)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(out), "orders": out})
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListAllOrders")
	defer span.End()

	q := r.URL.Query()
	views, err := h.service.ListAllOrders(ctx, principal(r), application.ListFilter{
		Status: q.Get("status"),
		UserID: q.Get("userId"),
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	out := toResponses(views)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(out), "orders": out})
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RevenueSummary")
	defer span.End()

	rev, err := h.service.RevenueSummary(ctx, principal(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"totalRevenue": rev.Total,
		"orderCount":   rev.OrderCount,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	v, err := h.service.GetOrder(ctx, principal(r), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(v))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var req updateStatusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	v, err := h.service.UpdateOrderStatus(ctx, principal(r), id, req.Status)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order status updated",
		"order":   toResponse(v),
	})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	v, err := h.service.CancelOrder(ctx, principal(r), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order cancelled",
		"order":   toResponse(v),
	})
}

// parseQuantity keeps the distinction between an absent quantity (nil) and
// one that is present but not a number (NaN). Numeric strings are accepted.
func parseQuantity(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsInf(v, 0) {
			return &v
		}
	}
	nan := math.NaN()
	return &nan
}

func principal(r *http.Request) access.Principal {
	p, _ := access.FromContext(r.Context())
	return p
}
