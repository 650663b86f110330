package response

import (
	"github.com/shopspring/decimal"
)

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

type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"hasMore"`
	NextSkip int       `json:"nextSkip"`
}
