package response

import (
	"time"

	"github.com/google/uuid"
)

// Error codes carried in the "code" field of failed user-service responses.
const (
	CodeConfigurationNotFound = "auth/configuration-not-found"
	CodeInvalidApiKey         = "auth/invalid-api-key"
	CodeUserNotFound          = "auth/user-not-found"
	CodeWrongPassword         = "auth/wrong-password"
	CodeEmailAlreadyInUse     = "auth/email-already-in-use"
	CodeWeakPassword          = "auth/weak-password"
	CodeInvalidEmail          = "auth/invalid-email"
	CodeNetworkRequestFailed  = "auth/network-request-failed"
	CodeInvalidToken          = "auth/invalid-token"
)

type Session struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type Login struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   Session   `json:"session"`
}
