package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/validation"
)

type Service struct {
	log      *slog.Logger
	products ProductRepository
	reviews  ReviewRepository
	cache    ProductCache
	validate *validation.Validator

	now   func() time.Time
	newID func() string
}

// NewService builds the catalog service. cache may be nil.
func NewService(log *slog.Logger, products ProductRepository, reviews ReviewRepository, cache ProductCache) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{
		log:      log,
		products: products,
		reviews:  reviews,
		cache:    cache,
		validate: validation.New(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (s *Service) CreateProduct(ctx context.Context, p access.Principal, in ProductInput) (domain.Product, error) {
	if err := access.CanMutateCatalog(p); err != nil {
		return domain.Product{}, err
	}
	in.normalize()
	if err := s.check(in, priceProblems(in.Price)); err != nil {
		return domain.Product{}, err
	}

	now := s.now()
	prod := domain.Product{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Category:    domain.Category(in.Category),
		Price:       *in.Price,
		Stock:       *in.Stock,
		ImageURL:    in.ImageURL,
		Featured:    in.Featured,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if prod.ImageURL == "" {
		prod.ImageURL = domain.DefaultImageURL
	}
	if in.Active != nil {
		prod.Active = *in.Active
	}

	if err := s.products.Create(ctx, prod); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", "product_id", prod.ID, "by", p.ID)
	return prod, nil
}

func (s *Service) UpdateProduct(ctx context.Context, p access.Principal, id string, patch ProductPatch) (domain.Product, error) {
	if err := access.CanMutateCatalog(p); err != nil {
		return domain.Product{}, err
	}
	if err := validateID("product", id); err != nil {
		return domain.Product{}, err
	}
	patch.normalize()

	extra := priceProblems(patch.Price)
	if patch.Name != nil && *patch.Name == "" {
		extra = append(extra, "name must not be empty")
	}
	if patch.Description != nil && *patch.Description == "" {
		extra = append(extra, "description must not be empty")
	}
	if err := s.check(patch, extra); err != nil {
		return domain.Product{}, err
	}

	prod, err := s.products.Update(ctx, id, patch.domain(), s.now())
	if err != nil {
		return domain.Product{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.log.Info("product updated", "product_id", id, "by", p.ID)
	return prod, nil
}

// DeleteProduct removes the product together with its reviews.
func (s *Service) DeleteProduct(ctx context.Context, p access.Principal, id string) (domain.Product, error) {
	if err := access.CanMutateCatalog(p); err != nil {
		return domain.Product{}, err
	}
	if err := validateID("product", id); err != nil {
		return domain.Product{}, err
	}
	prod, err := s.products.Delete(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.log.Info("product deleted", "product_id", id, "by", p.ID)
	return prod, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := validateID("product", id); err != nil {
		return domain.Product{}, err
	}
	if prod, ok := s.cache.Get(ctx, id); ok {
		return prod, nil
	}
	prod, err := s.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	s.cache.Set(ctx, prod)
	return prod, nil
}

type ListInput struct {
	Category string
	MinPrice string
	MaxPrice string
	Search   string
	Featured string
	InStock  string
}

// ListProducts applies the public filters. Operators also see inactive
// products.
func (s *Service) ListProducts(ctx context.Context, p access.Principal, in ListInput) ([]domain.Product, error) {
	f, err := parseFilter(in)
	if err != nil {
		return nil, err
	}
	f.IncludeInactive = p.IsOperator()
	return s.products.List(ctx, f)
}

func (s *Service) ProductStats(ctx context.Context, p access.Principal) (domain.Stats, error) {
	if err := access.RequireOperator(p, "view product statistics"); err != nil {
		return domain.Stats{}, err
	}
	return s.products.Stats(ctx)
}

// FindByIDs reads straight from the repository; reservations must never
// price or check stock from a cached copy.
func (s *Service) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	return s.products.FindByIDs(ctx, ids)
}

func (s *Service) DecrementIfAvailable(ctx context.Context, id string, qty int) (bool, int, error) {
	ok, available, err := s.products.DecrementIfAvailable(ctx, id, qty)
	if err == nil && ok {
		s.cache.Invalidate(ctx, id)
	}
	return ok, available, err
}

func (s *Service) Increment(ctx context.Context, id string, qty int) error {
	if err := s.products.Increment(ctx, id, qty); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

func (s *Service) CreateReview(ctx context.Context, p access.Principal, in ReviewInput) (domain.Review, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Review{}, err
	}
	prod, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		return domain.Review{}, err
	}

	r := domain.Review{
		ID:          s.newID(),
		ProductID:   prod.ID,
		ProductName: prod.Name,
		Username:    p.Email,
		Rating:      in.Rating,
		Comment:     in.Comment,
		CreatedAt:   s.now(),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	return r, nil
}

func (s *Service) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return s.reviews.List(ctx, "")
}

func (s *Service) ListReviewsByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	if err := validateID("product", productID); err != nil {
		return nil, err
	}
	return s.reviews.List(ctx, productID)
}

func (s *Service) GetReview(ctx context.Context, id string) (domain.Review, error) {
	if err := validateID("review", id); err != nil {
		return domain.Review{}, err
	}
	return s.reviews.Get(ctx, id)
}

func (s *Service) DeleteReview(ctx context.Context, p access.Principal, id string) (domain.Review, error) {
	if err := access.RequireOperator(p, "delete reviews"); err != nil {
		return domain.Review{}, err
	}
	if err := validateID("review", id); err != nil {
		return domain.Review{}, err
	}
	return s.reviews.Delete(ctx, id)
}

// check runs struct validation and merges in problems found by hand so the
// caller sees them all at once.
func (s *Service) check(v any, extra []string) error {
	var details []string
	if err := s.validate.Struct(v); err != nil {
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		details = append(details, ve.Details...)
	}
	details = append(details, extra...)
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

func validateID(resource, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation(fmt.Sprintf("invalid %s id %q", resource, id))
	}
	return nil
}
