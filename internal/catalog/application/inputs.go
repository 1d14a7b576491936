package application

import (
	"strings"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/money"
)

type ProductInput struct {
	Name        string       `json:"name" validate:"required,min=2,max=100"`
	Description string       `json:"description" validate:"required,min=10,max=2000"`
	Price       *money.Money `json:"price" validate:"required"`
	Category    string       `json:"category" validate:"required,oneof=Electronics Clothing Books 'Home & Garden' Sports Toys Food Other"`
	Stock       *int         `json:"stock" validate:"required,gte=0"`
	ImageURL    string       `json:"imageUrl" validate:"omitempty,http_url"`
	Featured    bool         `json:"featured"`
	Active      *bool        `json:"isActive"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

type ProductPatch struct {
	Name        *string      `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string      `json:"description" validate:"omitempty,min=10,max=2000"`
	Price       *money.Money `json:"price"`
	Category    *string      `json:"category" validate:"omitempty,oneof=Electronics Clothing Books 'Home & Garden' Sports Toys Food Other"`
	Stock       *int         `json:"stock" validate:"omitempty,gte=0"`
	ImageURL    *string      `json:"imageUrl" validate:"omitempty,http_url"`
	Featured    *bool        `json:"featured"`
	Active      *bool        `json:"isActive"`
}

func (p *ProductPatch) normalize() {
	for _, s := range []*string{p.Name, p.Description, p.ImageURL} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

func (p ProductPatch) domain() domain.Patch {
	out := domain.Patch{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Featured:    p.Featured,
		Active:      p.Active,
	}
	if p.Category != nil {
		c := domain.Category(*p.Category)
		out.Category = &c
	}
	return out
}

func priceProblems(p *money.Money) []string {
	switch {
	case p == nil:
		return nil
	case p.IsNegative():
		return []string{"price cannot be negative"}
	case p.GreaterThan(domain.MaxPrice):
		return []string{"price seems unreasonably high"}
	}
	return nil
}

type ReviewInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"required,min=5,max=1000"`
}
