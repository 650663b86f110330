package request

type ListProducts struct {
	Limit int `validate:"min=1,max=100" json:"limit"`
	Skip  int `validate:"min=0"         json:"skip"`
}

type SearchProducts struct {
	Query string `validate:"required" json:"q"`
	Limit int    `validate:"min=1,max=100" json:"limit"`
	Skip  int    `validate:"min=0"         json:"skip"`
}
