package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/user/pkg/response"
)

// Session is the signed-in user handle delivered by a Provider.
type Session struct {
	UserID    uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProviderError is a provider failure carrying one of the auth/* codes.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

type Provider interface {
	SignIn(c context.Context, email string, password string) error
	SignUp(c context.Context, email string, password string) error
	SignOut(c context.Context) error
	// Subscribe registers fn for session changes. The first call to fn reports
	// the restored state, signed-in or signed-out.
	Subscribe(fn func(*Session)) (unsubscribe func())
}

type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const (
	msgConfigurationNotFound = "Authentication is not enabled. Please check the provider console."
	msgInvalidApiKey         = "Invalid authentication API key. Please check configuration."
	msgUserNotFound          = "No account found with this email address."
	msgWrongPassword         = "Incorrect password."
	msgEmailAlreadyInUse     = "An account with this email already exists."
	msgWeakPassword          = "Password should be at least 6 characters."
)

var (
	commonMessages = map[string]string{
		response.CodeConfigurationNotFound: msgConfigurationNotFound,
		response.CodeInvalidApiKey:         msgInvalidApiKey,
	}
	loginMessages = map[string]string{
		response.CodeUserNotFound:  msgUserNotFound,
		response.CodeWrongPassword: msgWrongPassword,
	}
	registerMessages = map[string]string{
		response.CodeEmailAlreadyInUse: msgEmailAlreadyInUse,
		response.CodeWeakPassword:      msgWeakPassword,
	}
)

func classify(err error, messages map[string]string) string {
	providerErr := &ProviderError{}
	if !errors.As(err, &providerErr) {
		return err.Error()
	}
	if msg, ok := commonMessages[providerErr.Code]; ok {
		return msg
	}
	if msg, ok := messages[providerErr.Code]; ok {
		return msg
	}
	return providerErr.Message
}

// Holder owns the live session. Construct it once and pass it to whatever needs it.
type Holder struct {
	provider     Provider
	mutex        sync.RWMutex
	session      *Session
	initializing bool
	initialized  chan struct{}
	once         sync.Once
	unsubscribe  func()
}

func NewHolder(provider Provider) *Holder {
	h := &Holder{
		provider:     provider,
		initializing: true,
		initialized:  make(chan struct{}),
	}
	h.unsubscribe = provider.Subscribe(h.onChange)
	return h
}

func (h *Holder) onChange(session *Session) {
	h.mutex.Lock()
	h.session = session
	h.initializing = false
	h.mutex.Unlock()
	h.once.Do(func() { close(h.initialized) })
}

func (h *Holder) Session() *Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.session
}

func (h *Holder) Initializing() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.initializing
}

// WaitInitialized blocks until the provider delivered its first notification.
func (h *Holder) WaitInitialized(c context.Context) error {
	select {
	case <-h.initialized:
		return nil
	case <-c.Done():
		return c.Err()
	}
}

func (h *Holder) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
}

func (h *Holder) Login(c context.Context, email string, password string) Result {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Holder Login").
		Str(constants.KEY_EMAIL, email).
		Logger()

	logger.Trace().Msg("attempting login")
	if err := h.provider.SignIn(c, email, password); err != nil {
		logger.Error().Err(err).Msg("failed login")
		return Result{Error: classify(err, loginMessages)}
	}
	logger.Info().Msg("login success")
	return Result{Success: true}
}

func (h *Holder) Register(c context.Context, email string, password string) Result {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Holder Register").
		Str(constants.KEY_EMAIL, email).
		Logger()

	logger.Trace().Msg("attempting registration")
	if err := h.provider.SignUp(c, email, password); err != nil {
		logger.Error().Err(err).Msg("failed registration")
		return Result{Error: classify(err, registerMessages)}
	}
	logger.Info().Msg("registration success")
	return Result{Success: true}
}

func (h *Holder) Logout(c context.Context) Result {
	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "Holder Logout").Logger()

	if err := h.provider.SignOut(c); err != nil {
		logger.Error().Err(err).Msg("failed logout")
		return Result{Error: err.Error()}
	}
	logger.Info().Msg("logout success")
	return Result{Success: true}
}
