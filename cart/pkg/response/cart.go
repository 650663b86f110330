package response

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/request"
)

type CartLine struct {
	ProductId int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Thumbnail string          `json:"thumbnail"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	Items      []CartLine      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
}

const (
	PaymentMethodCard = "card"
	PaymentMethodTest = "test"
)

type Confirmation struct {
	OrderNumber     string           `json:"order_number"`
	UserId          string           `json:"user_id"`
	Items           []CartLine       `json:"items"`
	Shipping        request.Shipping `json:"shipping"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Tax             decimal.Decimal  `json:"tax"`
	ShippingFee     decimal.Decimal  `json:"shipping_fee"`
	Total           decimal.Decimal  `json:"total"`
	PaymentMethod   string           `json:"payment_method"`
	PaymentIntentId string           `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
