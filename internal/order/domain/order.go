package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/money"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusCreated, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentPayPal     PaymentMethod = "paypal"
	PaymentCash       PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCreditCard, PaymentDebitCard, PaymentPayPal, PaymentCash:
		return true
	}
	return false
}

const MaxNotesLength = 500

type ShippingAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// Item is immutable once the order exists; PriceAtPurchase is a snapshot.
type Item struct {
	ProductID       string
	Quantity        int
	PriceAtPurchase money.Money
}

func (i Item) LineTotal() money.Money {
	return i.PriceAtPurchase.Mul(i.Quantity)
}

// Details are the optional checkout fields that carry no invariants beyond
// their own validation.
type Details struct {
	ShippingAddress *ShippingAddress
	PaymentMethod   PaymentMethod
	Notes           string
}

func (d Details) Normalize() (Details, error) {
	if d.PaymentMethod == "" {
		d.PaymentMethod = PaymentCreditCard
	}
	d.Notes = strings.TrimSpace(d.Notes)

	var problems []string
	if !d.PaymentMethod.Valid() {
		problems = append(problems, "paymentMethod must be one of credit_card, debit_card, paypal, cash")
	}
	if len([]rune(d.Notes)) > MaxNotesLength {
		problems = append(problems, "notes must not exceed 500 characters")
	}
	if len(problems) > 0 {
		return d, apperr.Validation(problems...)
	}
	return d, nil
}

type Order struct {
	ID        string
	UserID    string
	Items     []Item
	Total     money.Money
	Status    Status
	Details   Details
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder builds an order in the created state with the total derived from
// items.
func NewOrder(id, userID string, items []Item, details Details, now time.Time) (Order, error) {
	if len(items) == 0 {
		return Order{}, apperr.Validation("Order must contain at least one item")
	}
	return Order{
		ID:        id,
		UserID:    userID,
		Items:     items,
		Total:     Total(items),
		Status:    StatusCreated,
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func Total(items []Item) money.Money {
	lines := make([]money.Money, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.LineTotal())
	}
	return money.Sum(lines...)
}

func (o Order) Number() string {
	id := o.ID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return "ORD-" + strings.ToUpper(id)
}

func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Quantities sums quantity per product, so repeated lines for one product
// are reserved and restituted together.
func (o Order) Quantities() map[string]int {
	return Quantities(o.Items)
}

func Quantities(items []Item) map[string]int {
	q := make(map[string]int, len(items))
	for _, it := range items {
		q[it.ProductID] += it.Quantity
	}
	return q
}
