package domain

import (
	"time"

	"github.com/dmehra2102/storefront/pkg/money"
)

const (
	AggregateOrder = "order"

	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type EventItem struct {
	ProductID       string      `json:"productId"`
	Quantity        int         `json:"quantity"`
	PriceAtPurchase money.Money `json:"priceAtPurchase"`
}

type OrderCreated struct {
	OrderID    string      `json:"orderId"`
	UserID     string      `json:"userId"`
	TotalPrice money.Money `json:"totalPrice"`
	Items      []EventItem `json:"items"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type OrderStatusChanged struct {
	OrderID    string    `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Restituted bool      `json:"restituted"`
	ChangedBy  string    `json:"changedBy"`
	ChangedAt  time.Time `json:"changedAt"`
}

func NewOrderCreated(o Order) OrderCreated {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity, PriceAtPurchase: it.PriceAtPurchase})
	}
	return OrderCreated{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.Total,
		Items:      items,
		CreatedAt:  o.CreatedAt,
	}
}
