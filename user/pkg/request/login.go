package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type Login struct {
	Email    string `validate:"required" json:"email"`
	Password string `validate:"required" json:"password"`
}

func (l Login) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", l.Email).Str("password", "***")
}

func (l Login) MarshalJSON() ([]byte, error) {
	l.Password = "***"
	type L Login
	return json.Marshal(L(l))
}
