package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/user/pkg/response"
)

type fakeProvider struct {
	listener      func(*Session)
	subscriptions int
	unsubscribed  int
	err           error
}

func (f *fakeProvider) SignIn(c context.Context, email string, password string) error {
	if f.err != nil {
		return f.err
	}
	f.listener(&Session{UserID: uuid.New(), Email: email, Token: "token"})
	return nil
}

func (f *fakeProvider) SignUp(c context.Context, email string, password string) error {
	return f.SignIn(c, email, password)
}

func (f *fakeProvider) SignOut(c context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.listener(nil)
	return nil
}

func (f *fakeProvider) Subscribe(fn func(*Session)) func() {
	f.subscriptions++
	f.listener = fn
	return func() { f.unsubscribed++ }
}

func TestHolderInitialization(t *testing.T) {
	provider := &fakeProvider{}
	holder := NewHolder(provider)
	defer holder.Close()

	assert.Equal(t, 1, provider.subscriptions)
	assert.True(t, holder.Initializing())
	assert.Nil(t, holder.Session())

	c, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, holder.WaitInitialized(c), context.DeadlineExceeded)

	provider.listener(nil)
	assert.False(t, holder.Initializing())
	assert.Nil(t, holder.Session())
	require.NoError(t, holder.WaitInitialized(context.Background()))

	provider.listener(&Session{Email: "ada@example.com"})
	require.NotNil(t, holder.Session())
	assert.Equal(t, "ada@example.com", holder.Session().Email)
}

func TestHolderClose(t *testing.T) {
	provider := &fakeProvider{}
	holder := NewHolder(provider)

	holder.Close()
	holder.Close()

	assert.Equal(t, 1, provider.unsubscribed)
}

func TestHolderSessionChanges(t *testing.T) {
	provider := &fakeProvider{}
	holder := NewHolder(provider)
	defer holder.Close()
	provider.listener(nil)

	result := holder.Login(context.Background(), "ada@example.com", "secret1")
	assert.Equal(t, Result{Success: true}, result)
	require.NotNil(t, holder.Session())

	result = holder.Logout(context.Background())
	assert.Equal(t, Result{Success: true}, result)
	assert.Nil(t, holder.Session())
}

func TestHolderErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		call     func(h *Holder) Result
		expected string
	}{
		{
			name:     "login configuration not found",
			err:      &ProviderError{Code: response.CodeConfigurationNotFound, Message: "raw"},
			call:     func(h *Holder) Result { return h.Login(context.Background(), "a@b.c", "x") },
			expected: "Authentication is not enabled. Please check the provider console.",
		},
		{
			name:     "register invalid api key",
			err:      &ProviderError{Code: response.CodeInvalidApiKey, Message: "raw"},
			call:     func(h *Holder) Result { return h.Register(context.Background(), "a@b.c", "x") },
			expected: "Invalid authentication API key. Please check configuration.",
		},
		{
			name:     "login user not found",
			err:      &ProviderError{Code: response.CodeUserNotFound, Message: "raw"},
			call:     func(h *Holder) Result { return h.Login(context.Background(), "a@b.c", "x") },
			expected: "No account found with this email address.",
		},
		{
			name:     "login wrong password",
			err:      &ProviderError{Code: response.CodeWrongPassword, Message: "raw"},
			call:     func(h *Holder) Result { return h.Login(context.Background(), "a@b.c", "x") },
			expected: "Incorrect password.",
		},
		{
			name:     "register email already in use",
			err:      &ProviderError{Code: response.CodeEmailAlreadyInUse, Message: "raw"},
			call:     func(h *Holder) Result { return h.Register(context.Background(), "a@b.c", "x") },
			expected: "An account with this email already exists.",
		},
		{
			name:     "register weak password",
			err:      &ProviderError{Code: response.CodeWeakPassword, Message: "raw"},
			call:     func(h *Holder) Result { return h.Register(context.Background(), "a@b.c", "x") },
			expected: "Password should be at least 6 characters.",
		},
		{
			name:     "register keeps raw message for login codes",
			err:      &ProviderError{Code: response.CodeUserNotFound, Message: "user not found"},
			call:     func(h *Holder) Result { return h.Register(context.Background(), "a@b.c", "x") },
			expected: "user not found",
		},
		{
			name:     "login invalid email keeps raw message",
			err:      &ProviderError{Code: response.CodeInvalidEmail, Message: "invalid email"},
			call:     func(h *Holder) Result { return h.Login(context.Background(), "a", "x") },
			expected: "invalid email",
		},
		{
			name:     "logout network failure",
			err:      errors.New("connection refused"),
			call:     func(h *Holder) Result { return h.Logout(context.Background()) },
			expected: "connection refused",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			holder := NewHolder(&fakeProvider{err: test.err})
			defer holder.Close()

			result := test.call(holder)

			assert.False(t, result.Success)
			assert.Equal(t, test.expected, result.Error)
		})
	}
}
