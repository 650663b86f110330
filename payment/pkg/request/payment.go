package request

type CreatePaymentIntent struct {
	Amount   int64  `validate:"gt=0"                  json:"amount"`
	Currency string `validate:"omitempty,len=3,alpha" json:"currency"`
}
