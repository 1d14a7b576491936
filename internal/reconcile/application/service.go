package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmehra2102/storefront/internal/reconcile/domain"
	"github.com/dmehra2102/storefront/pkg/metrics"
)

const sweepBatch = 100

type Service struct {
	log     *slog.Logger
	store   Store
	cache   CacheInvalidator
	metrics *metrics.Metrics
	workers int

	now func() time.Time
}

// NewService builds the reconciler. cache may be nil.
func NewService(log *slog.Logger, store Store, cache CacheInvalidator, m *metrics.Metrics, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		log:     log,
		store:   store,
		cache:   cache,
		metrics: m,
		workers: workers,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Apply hands the stock of one reconciliation back. Applying twice is a no-op.
func (s *Service) Apply(ctx context.Context, id string) error {
	applied, products, err := s.store.Apply(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("apply reconciliation %s: %w", id, err)
	}
	if !applied {
		s.log.Info("reconciliation already applied", "reconciliation_id", id)
		return nil
	}
	if s.cache != nil && len(products) > 0 {
		s.cache.Invalidate(ctx, products...)
	}
	s.metrics.ReconciliationsApplied.Inc()
	s.log.Info("reconciliation applied", "reconciliation_id", id, "products", len(products))
	return nil
}

// Sweep applies every pending reconciliation, which covers records whose
// event was lost or whose first apply failed. It returns how many were
// applied by this call.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	pending, err := s.store.Pending(ctx, sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list pending reconciliations: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	jobs := make(chan domain.StockReconciliation)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for range min(s.workers, len(pending)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if err := s.Apply(ctx, rec.ID); err != nil {
					s.log.Error("sweep apply failed", "reconciliation", rec, "err", err)
					continue
				}
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}

	for _, rec := range pending {
		select {
		case jobs <- rec:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	return applied, ctx.Err()
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if n, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("reconciliation sweep failed", "err", err)
		} else if n > 0 {
			s.log.Info("reconciliation sweep", "applied", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
