package request

type AddCartItem struct {
	ProductId int64 `validate:"required,gte=1" json:"product_id"`
	Quantity  int   `validate:"gte=0"          json:"quantity"`
}

// UpdateCartItem accepts zero and negative quantities, both of which remove the line.
type UpdateCartItem struct {
	Quantity *int `validate:"required" json:"quantity"`
}

type Shipping struct {
	Address    string `validate:"required" json:"address"`
	City       string `validate:"required" json:"city"`
	PostalCode string `validate:"required" json:"postal_code"`
	Country    string `validate:"required" json:"country"`
}

type Checkout struct {
	Shipping      Shipping `validate:"required" json:"shipping"`
	PaymentMethod string   `                    json:"payment_method"`
	TestPayment   bool     `                    json:"test_payment"`
}
