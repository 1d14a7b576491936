package application

import (
	"strconv"
	"strings"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/money"
)

func parseFilter(in ListInput) (domain.Filter, error) {
	var (
		f        domain.Filter
		problems []string
	)

	if in.Category != "" {
		f.Category = domain.Category(in.Category)
		if !f.Category.Valid() {
			problems = append(problems, "category "+strconv.Quote(in.Category)+" is not a valid category")
		}
	}
	if in.MinPrice != "" {
		m, err := money.Parse(in.MinPrice)
		if err != nil {
			problems = append(problems, "minPrice must be a number")
		} else {
			f.MinPrice = &m
		}
	}
	if in.MaxPrice != "" {
		m, err := money.Parse(in.MaxPrice)
		if err != nil {
			problems = append(problems, "maxPrice must be a number")
		} else {
			f.MaxPrice = &m
		}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		problems = append(problems, "minPrice must not exceed maxPrice")
	}
	if in.Featured != "" {
		b, err := strconv.ParseBool(in.Featured)
		if err != nil {
			problems = append(problems, "featured must be true or false")
		} else {
			f.Featured = &b
		}
	}
	if in.InStock != "" {
		b, err := strconv.ParseBool(in.InStock)
		if err != nil {
			problems = append(problems, "inStock must be true or false")
		}
		f.InStock = b
	}
	f.Search = strings.TrimSpace(in.Search)

	if len(problems) > 0 {
		return domain.Filter{}, apperr.Validation(problems...)
	}
	return f, nil
}
