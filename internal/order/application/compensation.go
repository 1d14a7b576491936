package application

import (
	"context"
	"time"

	recdomain "github.com/dmehra2102/storefront/internal/reconcile/domain"
)

// compensate hands stock back to the catalog. Each increment is retried with
// exponential backoff; whatever still fails is escalated to a reconciliation
// record. It runs detached from the caller's cancellation so a client hanging
// up cannot leave stock short.
func (s *Service) compensate(ctx context.Context, orderID, reason string, qtys map[string]int) {
	if len(qtys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var failed []recdomain.Item
	for _, id := range sortedIDs(qtys) {
		qty := qtys[id]
		if err := s.retry(ctx, func(ctx context.Context) error {
			return s.catalog.Increment(ctx, id, qty)
		}); err != nil {
			s.log.Error("stock increment failed permanently", "order_id", orderID, "product_id", id, "quantity", qty, "err", err)
			failed = append(failed, recdomain.Item{ProductID: id, Quantity: qty})
		}
	}
	if len(failed) == 0 {
		return
	}

	s.metrics.CompensationFailures.Inc()
	s.escalate(ctx, orderID, reason, failed)
}

func (s *Service) retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < s.opts.CompensationAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt < s.opts.CompensationAttempts-1 {
			backoff := s.opts.CompensationBackoff * time.Duration(1<<uint(attempt))
			s.log.Warn("stock increment failed, retrying", "attempt", attempt+1, "backoff", backoff, "err", err)
			time.Sleep(backoff)
		}
	}
	return err
}

func (s *Service) escalate(ctx context.Context, orderID, reason string, items []recdomain.Item) {
	rec := recdomain.StockReconciliation{
		ID:        s.newID(),
		OrderID:   orderID,
		Reason:    reason,
		Items:     items,
		Status:    recdomain.StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.log.Error("stock reconciliation could not be recorded", "reconciliation", rec, "err", err)
		return
	}
	s.metrics.ReconciliationsRecorded.Inc()
	s.log.Warn("stock reconciliation recorded", "reconciliation_id", rec.ID, "order_id", orderID, "items", len(items))
}
