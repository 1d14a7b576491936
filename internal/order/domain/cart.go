package domain

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/money"
)

const maxQuantity = math.MaxInt32

// RequestedItem is one cart line as submitted. Quantity is nil when the client
// left it out; NaN marks a value that was not numeric at all.
type RequestedItem struct {
	ProductID string
	Quantity  *float64
}

// Line is a structurally valid cart line.
type Line struct {
	ProductID string
	Quantity  int
}

// NormalizeCart validates every requested line and reports all offending
// lines at once. A missing or zero quantity becomes 1 only when
// allowDefaultQuantity is set.
func NormalizeCart(items []RequestedItem, allowDefaultQuantity bool) ([]Line, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("items must be a non-empty array")
	}

	var problems []string
	lines := make([]Line, 0, len(items))
	for i, it := range items {
		prefix := fmt.Sprintf("Item %d: ", i+1)

		switch {
		case it.ProductID == "":
			problems = append(problems, prefix+"productId is required")
		default:
			if _, err := uuid.Parse(it.ProductID); err != nil {
				problems = append(problems, prefix+fmt.Sprintf("productId %q is not a valid id", it.ProductID))
			}
		}

		qty, problem := normalizeQuantity(it.Quantity, allowDefaultQuantity)
		if problem != "" {
			problems = append(problems, prefix+problem)
		}
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: qty})
	}

	if len(problems) > 0 {
		return nil, apperr.Validation(problems...)
	}
	return lines, nil
}

func normalizeQuantity(q *float64, allowDefault bool) (int, string) {
	if q == nil || *q == 0 {
		if allowDefault {
			return 1, ""
		}
		if q == nil {
			return 0, "quantity is required"
		}
	}
	v := *q
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v):
		return 0, "quantity must be an integer"
	case v < 1:
		return 0, "quantity must be at least 1"
	case v > maxQuantity:
		return 0, "quantity is too large"
	}
	return int(v), ""
}

// ProductSnapshot is the catalog state read once per reservation.
type ProductSnapshot struct {
	ID     string
	Name   string
	Price  money.Money
	Stock  int
	Active bool
}

// Price resolves lines against the fetched products. Missing or inactive
// products yield a NotFoundError naming every such id; otherwise every product
// whose stock cannot cover the summed quantity of its lines is reported in one
// StockError. On success each item carries the price read in this snapshot.
func Price(lines []Line, products map[string]ProductSnapshot) ([]Item, error) {
	var missing []string
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		if p, ok := products[l.ProductID]; !ok || !p.Active {
			missing = append(missing, l.ProductID)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound("product", missing...)
	}

	wanted := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := wanted[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		wanted[l.ProductID] += l.Quantity
	}

	var shortages []apperr.Shortage
	for _, id := range order {
		p := products[id]
		if wanted[id] > p.Stock {
			shortages = append(shortages, apperr.Shortage{
				ProductID: id,
				Name:      p.Name,
				Requested: wanted[id],
				Available: p.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &apperr.StockError{Shortages: shortages}
	}

	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: products[l.ProductID].Price,
		})
	}
	return items, nil
}

// DistinctIDs returns the product ids of lines in first-seen order.
func DistinctIDs(lines []Line) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}
