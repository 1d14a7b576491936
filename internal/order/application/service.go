package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/access"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/metrics"
)

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	catalog  Catalog
	recorder ReconciliationRecorder
	idem     IdempotencyStore
	metrics  *metrics.Metrics
	opts     Options

	now   func() time.Time
	newID func() string
}

// NewService wires the reservation engine. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewService(log *slog.Logger, repo OrderRepository, catalog Catalog, recorder ReconciliationRecorder, idem IdempotencyStore, m *metrics.Metrics, opts Options) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		catalog:  catalog,
		recorder: recorder,
		idem:     idem,
		metrics:  m,
		opts:     opts.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

type CreateOrderInput struct {
	Items          []domain.RequestedItem
	Details        domain.Details
	IdempotencyKey string
}

// CreateOrder reserves stock for the cart and records the order. A repeated
// IdempotencyKey from the same principal returns the first order.
func (s *Service) CreateOrder(ctx context.Context, p access.Principal, in CreateOrderInput) (View, error) {
	if in.IdempotencyKey == "" || s.idem == nil {
		return s.createOrder(ctx, p, in)
	}

	key := idempotency.RequestKey("create-order", p.ID, in.IdempotencyKey)
	orderID, fresh, err := s.idem.Begin(ctx, key)
	switch {
	case errors.Is(err, idempotency.ErrInFlight):
		return View{}, &apperr.ConflictError{Resource: "idempotency key", ID: in.IdempotencyKey}
	case err != nil:
		return View{}, fmt.Errorf("idempotency begin: %w", err)
	case !fresh:
		s.log.Info("idempotent replay", "order_id", orderID, "user_id", p.ID)
		return s.GetOrder(ctx, p, orderID)
	}

	v, err := s.createOrder(ctx, p, in)
	if err != nil {
		if aerr := s.idem.Abort(context.WithoutCancel(ctx), key); aerr != nil {
			s.log.Warn("idempotency abort failed", "key", key, "err", aerr)
		}
		return View{}, err
	}
	if err := s.idem.Complete(context.WithoutCancel(ctx), key, v.Order.ID); err != nil {
		s.log.Warn("idempotency complete failed", "key", key, "err", err)
	}
	return v, nil
}

func (s *Service) createOrder(ctx context.Context, p access.Principal, in CreateOrderInput) (View, error) {
	o, names, err := s.ReserveAndPrice(ctx, p.ID, in.Items, in.Details)
	if err != nil {
		s.observeRejection(err)
		return View{}, err
	}
	s.metrics.OrdersCreated.Inc()
	s.log.Info("order created", "order_id", o.ID, "user_id", p.ID, "total", o.Total.String(), "items", len(o.Items))
	return View{Order: o, UserEmail: p.Email, ProductNames: names}, nil
}

// ReserveAndPrice validates the cart, prices it from one catalog read,
// reserves the stock and persists the order. Either all of that happens or
// the stock it took is handed back.
func (s *Service) ReserveAndPrice(ctx context.Context, userID string, requested []domain.RequestedItem, details domain.Details) (domain.Order, map[string]string, error) {
	lines, err := domain.NormalizeCart(requested, s.opts.AllowDefaultQuantity)
	if err != nil {
		return domain.Order{}, nil, err
	}
	details, err = details.Normalize()
	if err != nil {
		return domain.Order{}, nil, err
	}

	products, err := s.catalog.FindByIDs(ctx, domain.DistinctIDs(lines))
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("load products: %w", err)
	}
	items, err := domain.Price(lines, products)
	if err != nil {
		return domain.Order{}, nil, err
	}
	o, err := domain.NewOrder(s.newID(), userID, items, details, s.now())
	if err != nil {
		return domain.Order{}, nil, err
	}

	if err := s.reserve(ctx, o, products); err != nil {
		return domain.Order{}, nil, err
	}

	if err := s.repo.Create(ctx, o); err != nil {
		s.log.Error("order persist failed, releasing stock", "order_id", o.ID, "err", err)
		s.compensate(ctx, o.ID, "order persistence failed", o.Quantities())
		return domain.Order{}, nil, fmt.Errorf("persist order: %w", err)
	}

	names := make(map[string]string, len(products))
	for id, p := range products {
		names[id] = p.Name
	}
	return o, names, nil
}

// reserve takes stock product by product in id order so concurrent
// reservations over the same products always contend in the same sequence.
// If any guarded decrement declines, what was already taken is returned.
func (s *Service) reserve(ctx context.Context, o domain.Order, products map[string]domain.ProductSnapshot) error {
	wanted := o.Quantities()
	taken := make(map[string]int, len(wanted))

	ids := sortedIDs(wanted)
	for i, id := range ids {
		ok, available, err := s.catalog.DecrementIfAvailable(ctx, id, wanted[id])
		if err != nil {
			s.compensate(ctx, o.ID, "reservation aborted", taken)
			return fmt.Errorf("reserve %s: %w", id, err)
		}
		if !ok {
			shortages := []apperr.Shortage{{
				ProductID: id,
				Name:      products[id].Name,
				Requested: wanted[id],
				Available: available,
			}}
			shortages = append(shortages, s.shortagesAmong(ctx, ids[i+1:], wanted, products)...)
			s.compensate(ctx, o.ID, "reservation aborted", taken)
			return &apperr.StockError{Shortages: shortages}
		}
		taken[id] = wanted[id]
	}
	return nil
}

// shortagesAmong rereads the products not yet reserved so a declined
// reservation reports every item that is short now, not only the first.
func (s *Service) shortagesAmong(ctx context.Context, ids []string, wanted map[string]int, products map[string]domain.ProductSnapshot) []apperr.Shortage {
	if len(ids) == 0 {
		return nil
	}
	current, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("stock reread failed", "err", err)
		return nil
	}
	var out []apperr.Shortage
	for _, id := range ids {
		p, found := current[id]
		available := p.Stock
		if !found || !p.Active {
			available = 0
		}
		if available < wanted[id] {
			out = append(out, apperr.Shortage{
				ProductID: id,
				Name:      products[id].Name,
				Requested: wanted[id],
				Available: available,
			})
		}
	}
	return out
}

func (s *Service) GetOrder(ctx context.Context, p access.Principal, id string) (View, error) {
	if err := validateID("order", id); err != nil {
		return View{}, err
	}
	v, err := s.repo.View(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := access.CanReadOrder(p, v.Order.UserID); err != nil {
		return View{}, err
	}
	return v, nil
}

func (s *Service) ListMyOrders(ctx context.Context, p access.Principal) ([]View, error) {
	return s.repo.List(ctx, Filter{UserID: p.ID})
}

type ListFilter struct {
	Status string
	UserID string
}

func (s *Service) ListAllOrders(ctx context.Context, p access.Principal, lf ListFilter) ([]View, error) {
	if err := access.CanListAllOrders(p); err != nil {
		return nil, err
	}

	var f Filter
	var problems []string
	if lf.Status != "" {
		st, ok := domain.ParseStatus(lf.Status)
		if !ok {
			problems = append(problems, statusProblem(lf.Status))
		}
		f.Status = st
	}
	if lf.UserID != "" {
		if _, err := uuid.Parse(lf.UserID); err != nil {
			problems = append(problems, fmt.Sprintf("userId %q is not a valid id", lf.UserID))
		}
		f.UserID = lf.UserID
	}
	if len(problems) > 0 {
		return nil, apperr.Validation(problems...)
	}
	return s.repo.List(ctx, f)
}

// UpdateOrderStatus is the operator path through the lifecycle table.
func (s *Service) UpdateOrderStatus(ctx context.Context, p access.Principal, id, status string) (View, error) {
	if err := access.CanSetOrderStatus(p); err != nil {
		return View{}, err
	}
	if err := validateID("order", id); err != nil {
		return View{}, err
	}
	to, ok := domain.ParseStatus(status)
	if !ok {
		return View{}, apperr.Validation(statusProblem(status))
	}

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := s.transition(ctx, p, o, to); err != nil {
		return View{}, err
	}
	return s.repo.View(ctx, id)
}

// CancelOrder lets the owner or an operator cancel an order that is still
// created. Stock is restituted exactly once, by whichever caller wins the
// status swap.
func (s *Service) CancelOrder(ctx context.Context, p access.Principal, id string) (View, error) {
	if err := validateID("order", id); err != nil {
		return View{}, err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := access.CanCancelOrder(p, o.UserID); err != nil {
		return View{}, err
	}
	if err := domain.Cancellable(o.Status); err != nil {
		return View{}, err
	}
	if err := s.transition(ctx, p, o, domain.StatusCancelled); err != nil {
		return View{}, err
	}
	return s.repo.View(ctx, id)
}

func (s *Service) RevenueSummary(ctx context.Context, p access.Principal) (Revenue, error) {
	if err := access.RequireOperator(p, "view revenue"); err != nil {
		return Revenue{}, err
	}
	return s.repo.Revenue(ctx)
}

func (s *Service) transition(ctx context.Context, p access.Principal, o domain.Order, to domain.Status) error {
	decision, err := domain.Decide(o.Status, to)
	if err != nil {
		return err
	}
	if !decision.Changed {
		return nil
	}

	at := s.now()
	ev := domain.OrderStatusChanged{
		OrderID:    o.ID,
		From:       o.Status,
		To:         to,
		Restituted: decision.Restitute,
		ChangedBy:  p.ID,
		ChangedAt:  at,
	}
	swapped, err := s.repo.UpdateStatus(ctx, o.ID, o.Status, to, at, ev)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if !swapped {
		// another writer moved the order first; report against its new status
		current, err := s.repo.Get(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return &apperr.InvalidTransitionError{From: string(current.Status), To: string(to)}
	}

	s.log.Info("order status changed", "order_id", o.ID, "from", o.Status, "to", to, "by", p.ID)
	if decision.Restitute {
		s.compensate(ctx, o.ID, "cancellation restitution", o.Quantities())
		s.metrics.OrdersCancelled.Inc()
	}
	return nil
}

func (s *Service) observeRejection(err error) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		se *apperr.StockError
	)
	kind := "error"
	switch {
	case errors.As(err, &ve):
		kind = "validation"
	case errors.As(err, &nf):
		kind = "not_found"
	case errors.As(err, &se):
		kind = "stock"
	}
	s.metrics.ReservationRejected.WithLabelValues(kind).Inc()
}

func validateID(resource, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation(fmt.Sprintf("invalid %s id %q", resource, id))
	}
	return nil
}

func statusProblem(s string) string {
	return fmt.Sprintf("status %q must be one of created, completed, cancelled", s)
}

func sortedIDs(q map[string]int) []string {
	ids := make([]string, 0, len(q))
	for id := range q {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
