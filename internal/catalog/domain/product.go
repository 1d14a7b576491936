package domain

import (
	"time"

	"github.com/dmehra2102/storefront/pkg/money"
)

type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryBooks       Category = "Books"
	CategoryHomeGarden  Category = "Home & Garden"
	CategorySports      Category = "Sports"
	CategoryToys        Category = "Toys"
	CategoryFood        Category = "Food"
	CategoryOther       Category = "Other"
)

var Categories = []Category{
	CategoryElectronics, CategoryClothing, CategoryBooks, CategoryHomeGarden,
	CategorySports, CategoryToys, CategoryFood, CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

const (
	DefaultImageURL = "https://via.placeholder.com/300x300?text=No+Image"
	LowStockBelow   = 10
)

var MaxPrice = money.FromCents(100_000_000)

type Product struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Price       money.Money
	Stock       int
	ImageURL    string
	Featured    bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) StockStatus() string {
	switch {
	case p.Stock == 0:
		return "Out of Stock"
	case p.Stock < LowStockBelow:
		return "Low Stock"
	}
	return "In Stock"
}

func (p Product) Available() bool { return p.Active && p.Stock > 0 }

type Filter struct {
	Category        Category
	MinPrice        *money.Money
	MaxPrice        *money.Money
	Search          string
	Featured        *bool
	InStock         bool
	IncludeInactive bool
}

type Stats struct {
	TotalProducts int
	TotalStock    int64
	OutOfStock    int
	ByCategory    map[Category]int
}

// Patch holds the fields of a partial update; nil means unchanged.
type Patch struct {
	Name        *string
	Description *string
	Category    *Category
	Price       *money.Money
	Stock       *int
	ImageURL    *string
	Featured    *bool
	Active      *bool
}
