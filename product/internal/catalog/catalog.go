package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 30
	DefaultSkip  = 0
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogStatus      = errors.New("catalog returned unexpected status")
	ErrCatalogUnavailable = errors.New("catalog is unavailable")
)

type StatusError struct {
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrCatalogStatus.Error(), e.StatusCode)
}

func (e StatusError) Unwrap() error {
	return ErrCatalogStatus
}

type Product struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Rating             decimal.Decimal `json:"rating"`
	Stock              int             `json:"stock"`
	Brand              string          `json:"brand,omitempty"`
	Category           string          `json:"category"`
	Thumbnail          string          `json:"thumbnail"`
	Images             []string        `json:"images"`
}

type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// HasMore reports whether another page can be requested after this one.
// A short page always ends the listing even when total says otherwise.
func (p Page) HasMore(requestedLimit, skip int) bool {
	return len(p.Products) == requestedLimit && skip+requestedLimit < p.Total
}

func NextSkip(requestedLimit, skip int) int {
	return skip + requestedLimit
}
