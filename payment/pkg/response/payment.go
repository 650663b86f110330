package response

type PaymentIntent struct {
	ClientSecret string `json:"client_secret"`
	ID           string `json:"id"`
}
