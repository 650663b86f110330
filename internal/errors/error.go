package errors

import (
	"errors"
)

var (
	ErrEmptyAuth    = errors.New("missing authorization")
	ErrEmptySubject = errors.New("missing subject")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
	ErrUnauthorized = errors.New("unauthorized")
)
