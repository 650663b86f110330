package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/user/pkg/response"
)

type userService struct {
	userId  uuid.UUID
	mutex   sync.Mutex
	revoked map[string]bool
}

func (u *userService) revoke(authorization string) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.revoked[authorization] = true
}

func (u *userService) isRevoked(authorization string) bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.revoked[authorization]
}

func (u *userService) write(w http.ResponseWriter, statusCode int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func (u *userService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/users/login", "/users/register":
		credentials := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&credentials)
		if credentials["password"] != "secret1" {
			u.write(w, http.StatusUnauthorized, map[string]interface{}{
				"status": "failed", "statusCode": http.StatusUnauthorized,
				"message": "wrong password", "code": response.CodeWrongPassword,
			})
			return
		}
		u.write(w, http.StatusOK, map[string]interface{}{
			"status": "success", "statusCode": http.StatusOK, "message": "login success",
			"data": response.Login{
				Token:     "token-" + credentials["email"],
				ExpiresAt: time.Now().Add(30 * time.Minute),
				Session:   response.Session{ID: u.userId, Email: credentials["email"]},
			},
		})
	case "/users/me":
		if u.isRevoked(r.Header.Get("Authorization")) {
			u.write(w, http.StatusUnauthorized, map[string]interface{}{"status": "failed", "statusCode": http.StatusUnauthorized, "message": "token has been revoked"})
			return
		}
		u.write(w, http.StatusOK, map[string]interface{}{
			"status": "success", "statusCode": http.StatusOK, "message": "found session",
			"data": response.Session{ID: u.userId, Email: "ada@example.com"},
		})
	case "/users/logout":
		u.revoke(r.Header.Get("Authorization"))
		u.write(w, http.StatusOK, map[string]interface{}{"status": "success", "statusCode": http.StatusOK, "message": "logout success"})
	default:
		http.NotFound(w, r)
	}
}

func newUserService(t *testing.T) (*httptest.Server, *userService) {
	t.Helper()
	users := &userService{userId: uuid.New(), revoked: map[string]bool{}}
	server := httptest.NewServer(users)
	t.Cleanup(server.Close)
	return server, users
}

func waitHolder(t *testing.T, provider Provider) *Holder {
	t.Helper()
	holder := NewHolder(provider)
	t.Cleanup(holder.Close)
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, holder.WaitInitialized(c))
	return holder
}

func TestRemoteProviderLifecycle(t *testing.T) {
	server, users := newUserService(t)
	sessionFile := filepath.Join(t.TempDir(), "shop", "session.json")

	holder := waitHolder(t, NewRemoteProvider(context.Background(), server.URL, sessionFile))
	assert.Nil(t, holder.Session())

	result := holder.Login(context.Background(), "ada@example.com", "secret1")
	require.True(t, result.Success, result.Error)
	require.NotNil(t, holder.Session())
	assert.Equal(t, users.userId, holder.Session().UserID)
	assert.FileExists(t, sessionFile)

	restored := waitHolder(t, NewRemoteProvider(context.Background(), server.URL, sessionFile))
	require.NotNil(t, restored.Session())
	assert.Equal(t, users.userId, restored.Session().UserID)
	assert.Equal(t, "token-ada@example.com", restored.Session().Token)

	result = holder.Logout(context.Background())
	require.True(t, result.Success, result.Error)
	assert.Nil(t, holder.Session())
	assert.NoFileExists(t, sessionFile)
}

func TestRemoteProviderDiscardsRejectedSession(t *testing.T) {
	server, users := newUserService(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	content, err := json.Marshal(Session{UserID: users.userId, Token: "stale", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sessionFile, content, 0o600))
	users.revoke("Bearer stale")

	holder := waitHolder(t, NewRemoteProvider(context.Background(), server.URL, sessionFile))

	assert.Nil(t, holder.Session())
	assert.NoFileExists(t, sessionFile)
}

func TestRemoteProviderDiscardsExpiredSession(t *testing.T) {
	server, _ := newUserService(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	content, err := json.Marshal(Session{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sessionFile, content, 0o600))

	holder := waitHolder(t, NewRemoteProvider(context.Background(), server.URL, sessionFile))

	assert.Nil(t, holder.Session())
	assert.NoFileExists(t, sessionFile)
}

func TestRemoteProviderErrors(t *testing.T) {
	server, _ := newUserService(t)
	holder := waitHolder(t, NewRemoteProvider(context.Background(), server.URL, filepath.Join(t.TempDir(), "session.json")))

	result := holder.Login(context.Background(), "ada@example.com", "wrong")
	assert.False(t, result.Success)
	assert.Equal(t, "Incorrect password.", result.Error)
	assert.Nil(t, holder.Session())

	provider := NewRemoteProvider(context.Background(), "http://127.0.0.1:1", filepath.Join(t.TempDir(), "session.json"))
	err := provider.SignIn(context.Background(), "ada@example.com", "secret1")
	providerErr := &ProviderError{}
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, response.CodeNetworkRequestFailed, providerErr.Code)
}

func TestRemoteProviderLogsRestore(t *testing.T) {
	server, users := newUserService(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	content, err := json.Marshal(Session{UserID: users.userId, Token: "stale", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sessionFile, content, 0o600))
	users.revoke("Bearer stale")

	var buffer bytes.Buffer
	c := zerolog.New(&buffer).WithContext(context.Background())
	holder := waitHolder(t, NewRemoteProvider(c, server.URL, sessionFile))

	assert.Nil(t, holder.Session())
	assert.Contains(t, buffer.String(), "discarding rejected session")
}
