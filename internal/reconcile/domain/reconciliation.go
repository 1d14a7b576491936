package domain

import (
	"log/slog"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusApplied Status = "applied"
)

const (
	AggregateReconciliation = "stock_reconciliation"

	EventReconciliationRequired = "StockReconciliationRequired"
)

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// StockReconciliation records stock that was taken from the catalog and could
// not be handed back inline. Applying it increments each product once.
type StockReconciliation struct {
	ID        string
	OrderID   string
	Reason    string
	Items     []Item
	Status    Status
	CreatedAt time.Time
}

// LogValue renders the whole record so an unrecorded reconciliation can be
// replayed by hand from the log line.
func (r StockReconciliation) LogValue() slog.Value {
	items := make([]any, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, map[string]any{"productId": it.ProductID, "quantity": it.Quantity})
	}
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("order_id", r.OrderID),
		slog.String("reason", r.Reason),
		slog.Any("items", items),
		slog.String("status", string(r.Status)),
		slog.Time("created_at", r.CreatedAt),
	)
}

type ReconciliationRequired struct {
	ReconciliationID string `json:"reconciliationId"`
	OrderID          string `json:"orderId"`
	Reason           string `json:"reason"`
	Items            []Item `json:"items"`
}

func (r StockReconciliation) Event() ReconciliationRequired {
	return ReconciliationRequired{
		ReconciliationID: r.ID,
		OrderID:          r.OrderID,
		Reason:           r.Reason,
		Items:            r.Items,
	}
}
