package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/middleware"
	inErrors "github.com/Alturino/storefront/user/internal/errors"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/internal/service"
	"github.com/Alturino/storefront/user/pkg/response"
)

const testSecret = "secret"

type memoryUsers struct {
	mutex sync.Mutex
	users []repository.User
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
	m.users = append(m.users, user)
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
	return repository.User{}, inErrors.ErrUserNotFound
}

func (m *memoryUsers) FindUserById(c context.Context, id uuid.UUID) (repository.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.User{}, inErrors.ErrUserNotFound
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	revoker := internal.NewTokenRevoker(cache)
	svc := service.NewUserService(&memoryUsers{}, revoker, testSecret)
	router := mux.NewRouter()
	AttachUserController(router, svc, middleware.Auth(testSecret, revoker))
	return router
}

func do(router http.Handler, method string, path string, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSessionLifecycle(t *testing.T) {
	router := newRouter(t)
	credentials := map[string]string{"email": "ada@example.com", "password": "secret1"}

	rec := do(router, http.MethodPost, "/users/register", "", credentials)
	require.Equal(t, http.StatusOK, rec.Code)
	registered, err := inHttp.DecodeEnvelope[response.Login](rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.Data.Session.Email)

	rec = do(router, http.MethodPost, "/users/login", "", credentials)
	require.Equal(t, http.StatusOK, rec.Code)
	login, err := inHttp.DecodeEnvelope[response.Login](rec.Body)
	require.NoError(t, err)
	require.NotEmpty(t, login.Data.Token)

	rec = do(router, http.MethodGet, "/users/me", login.Data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me, err := inHttp.DecodeEnvelope[response.Session](rec.Body)
	require.NoError(t, err)
	assert.Equal(t, registered.Data.Session.ID, me.Data.ID)

	rec = do(router, http.MethodPost, "/users/logout", login.Data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/users/me", login.Data.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newRouter(t)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/users/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/users/logout", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/users/me", "garbage", nil).Code)
}

func TestFailuresCarryProviderCode(t *testing.T) {
	router := newRouter(t)
	rec := do(router, http.MethodPost, "/users/register", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name       string
		path       string
		body       map[string]string
		statusCode int
		code       string
	}{
		{
			name:       "duplicate email",
			path:       "/users/register",
			body:       map[string]string{"email": "ada@example.com", "password": "secret1"},
			statusCode: http.StatusConflict,
			code:       response.CodeEmailAlreadyInUse,
		},
		{
			name:       "weak password",
			path:       "/users/register",
			body:       map[string]string{"email": "bob@example.com", "password": "123"},
			statusCode: http.StatusBadRequest,
			code:       response.CodeWeakPassword,
		},
		{
			name:       "invalid email",
			path:       "/users/register",
			body:       map[string]string{"email": "bob", "password": "secret1"},
			statusCode: http.StatusBadRequest,
			code:       response.CodeInvalidEmail,
		},
		{
			name:       "unknown user",
			path:       "/users/login",
			body:       map[string]string{"email": "bob@example.com", "password": "secret1"},
			statusCode: http.StatusNotFound,
			code:       response.CodeUserNotFound,
		},
		{
			name:       "wrong password",
			path:       "/users/login",
			body:       map[string]string{"email": "ada@example.com", "password": "nope-nope"},
			statusCode: http.StatusUnauthorized,
			code:       response.CodeWrongPassword,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, test.path, "", test.body)
			assert.Equal(t, test.statusCode, rec.Code)
			envelope, err := inHttp.DecodeEnvelope[json.RawMessage](rec.Body)
			require.NoError(t, err)
			assert.Equal(t, "failed", envelope.Status)
			assert.Equal(t, test.code, envelope.Code)
		})
	}
}
