package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal"
	inErrors "github.com/Alturino/storefront/user/internal/errors"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

const testSecret = "secret"

type memoryUsers struct {
	mutex sync.Mutex
	users map[uuid.UUID]repository.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[uuid.UUID]repository.User{}}
}

func (m *memoryUsers) InsertUser(c context.Context, arg repository.InsertUserParams) (repository.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, u := range m.users {
		if u.Email == arg.Email {
			return repository.User{}, inErrors.ErrEmailExist
		}
	}
	user := repository.User(arg)
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUsers) FindUserByEmail(c context.Context, email string) (repository.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, fmt.Errorf("%w: email=%s", inErrors.ErrUserNotFound, email)
}

func (m *memoryUsers) FindUserById(c context.Context, id uuid.UUID) (repository.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.User{}, inErrors.ErrUserNotFound
	}
	return u, nil
}

func newService(t *testing.T) (*UserService, *internal.TokenRevoker) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	revoker := internal.NewTokenRevoker(cache)
	return NewUserService(newMemoryUsers(), revoker, testSecret), revoker
}

func authenticated(t *testing.T, token string) context.Context {
	t.Helper()
	jwtToken, err := internal.VerifyToken(context.Background(), testSecret, token)
	require.NoError(t, err)
	return internal.AttachJwtToken(context.Background(), jwtToken)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	c := context.Background()

	registered, err := svc.Register(c, request.Register{Email: " Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.Session.Email)
	assert.NotEmpty(t, registered.Token)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), registered.ExpiresAt, time.Minute)

	loggedIn, err := svc.Login(c, request.Login{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.Session, loggedIn.Session)

	session, err := svc.Me(authenticated(t, loggedIn.Token))
	require.NoError(t, err)
	assert.Equal(t, registered.Session, session)
}

func TestProviderErrorCodes(t *testing.T) {
	svc, _ := newService(t)
	c := context.Background()
	_, err := svc.Register(c, request.Register{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		code string
	}{
		{
			name: "duplicate email",
			call: func() error {
				_, err := svc.Register(c, request.Register{Email: "ada@example.com", Password: "another"})
				return err
			},
			code: response.CodeEmailAlreadyInUse,
		},
		{
			name: "weak password",
			call: func() error {
				_, err := svc.Register(c, request.Register{Email: "bob@example.com", Password: "12345"})
				return err
			},
			code: response.CodeWeakPassword,
		},
		{
			name: "invalid email",
			call: func() error {
				_, err := svc.Register(c, request.Register{Email: "not-an-email", Password: "secret1"})
				return err
			},
			code: response.CodeInvalidEmail,
		},
		{
			name: "unknown user",
			call: func() error {
				_, err := svc.Login(c, request.Login{Email: "nobody@example.com", Password: "secret1"})
				return err
			},
			code: response.CodeUserNotFound,
		},
		{
			name: "wrong password",
			call: func() error {
				_, err := svc.Login(c, request.Login{Email: "ada@example.com", Password: "wrong-password"})
				return err
			},
			code: response.CodeWrongPassword,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.call()
			require.Error(t, err)
			assert.Equal(t, test.code, Code(err))
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, revoker := newService(t)
	login, err := svc.Register(context.Background(), request.Register{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	c := authenticated(t, login.Token)
	require.NoError(t, svc.Logout(c))

	tokenId, _, err := internal.TokenIdFromJwtToken(c)
	require.NoError(t, err)
	revoked, err := revoker.IsRevoked(context.Background(), tokenId)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutWithoutToken(t *testing.T) {
	svc, _ := newService(t)
	assert.Error(t, svc.Logout(context.Background()))
}
