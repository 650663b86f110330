package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Register carries no format rules of its own; the user service classifies
// malformed emails and short passwords into provider error codes.
type Register struct {
	Email    string `validate:"required" json:"email"`
	Password string `validate:"required" json:"password"`
}

func (r Register) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", r.Email).Str("password", "***")
}

func (r Register) MarshalJSON() ([]byte, error) {
	r.Password = "***"
	type R Register
	return json.Marshal(R(r))
}
