package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/catalog/application"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/money"
)

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
		tracer:  otel.Tracer("catalog-http"),
	}
}

type productResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       money.Money `json:"price"`
	Category    string      `json:"category"`
	Stock       int         `json:"stock"`
	StockStatus string      `json:"stockStatus"`
	ImageURL    string      `json:"imageUrl"`
	Featured    bool        `json:"featured"`
	Active      bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func toProduct(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    string(p.Category),
		Stock:       p.Stock,
		StockStatus: p.StockStatus(),
		ImageURL:    p.ImageURL,
		Featured:    p.Featured,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type reviewResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Username    string    `json:"username"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toReview(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Username:    r.Username,
		Rating:      r.Rating,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt,
	}
}

type statsResponse struct {
	TotalProducts int            `json:"totalProducts"`
	TotalStock    int64          `json:"totalStock"`
	OutOfStock    int            `json:"outOfStock"`
	ByCategory    map[string]int `json:"byCategory"`
}

// ProductRoutes is mounted under /api/products.
func (h *Handler) ProductRoutes() http.Handler {
	r := chi.NewRouter()
	r.With(h.auth.Optional).Get("/", h.listProducts)
	r.With(h.auth.Require).Get("/stats/summary", h.productStats)
	r.Get("/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Require)
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
	return r
}

// ReviewRoutes is mounted under /api/reviews.
func (h *Handler) ReviewRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listReviews)
	r.Get("/product/{productId}", h.listProductReviews)
	r.Get("/{id}", h.getReview)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Require)
		r.Post("/", h.createReview)
		r.Delete("/{id}", h.deleteReview)
	})
	return r
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	q := r.URL.Query()
	in := application.ListInput{
		Category: q.Get("category"),
		MinPrice: q.Get("minPrice"),
		MaxPrice: q.Get("maxPrice"),
		Search:   q.Get("search"),
		Featured: q.Get("featured"),
		InStock:  q.Get("inStock"),
	}
	products, err := h.service.ListProducts(ctx, principal(r), in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(out), "products": out})
}

func (h *Handler) productStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProductStats")
	defer span.End()

	s, err := h.service.ProductStats(ctx, principal(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	byCategory := make(map[string]int, len(s.ByCategory))
	for c, n := range s.ByCategory {
		byCategory[string(c)] = n
	}
	httpx.WriteJSON(w, http.StatusOK, statsResponse{
		TotalProducts: s.TotalProducts,
		TotalStock:    s.TotalStock,
		OutOfStock:    s.OutOfStock,
		ByCategory:    byCategory,
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "GetProduct", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := h.service.GetProduct(ctx, id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var in application.ProductInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	p, err := h.service.CreateProduct(ctx, principal(r), in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"product": toProduct(p),
	})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	var patch application.ProductPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	p, err := h.service.UpdateProduct(ctx, principal(r), id, patch)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Product updated successfully",
		"product": toProduct(p),
	})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := h.tracer.Start(r.Context(), "DeleteProduct", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := h.service.DeleteProduct(ctx, principal(r), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Product and associated reviews deleted successfully",
		"product": toProduct(p),
	})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListReviews")
	defer span.End()

	reviews, err := h.service.ListReviews(ctx)
	h.writeReviews(w, r, reviews, err)
}

func (h *Handler) listProductReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	ctx, span := h.tracer.Start(r.Context(), "ListProductReviews", trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	reviews, err := h.service.ListReviewsByProduct(ctx, productID)
	h.writeReviews(w, r, reviews, err)
}

func (h *Handler) writeReviews(w http.ResponseWriter, r *http.Request, reviews []domain.Review, err error) {
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	out := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReview(rv))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": len(out), "reviews": out})
}

func (h *Handler) getReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetReview")
	defer span.End()

	rv, err := h.service.GetReview(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toReview(rv))
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateReview")
	defer span.End()

	var in application.ReviewInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	rv, err := h.service.CreateReview(ctx, principal(r), in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Review created successfully",
		"review":  toReview(rv),
	})
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteReview")
	defer span.End()

	rv, err := h.service.DeleteReview(ctx, principal(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Review deleted successfully",
		"review":  toReview(rv),
	})
}

func principal(r *http.Request) access.Principal {
	p, _ := access.FromContext(r.Context())
	return p
}
