package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/log"
)

const testSecret = "secret"

type revocations map[string]bool

func (r revocations) IsRevoked(_ context.Context, tokenId string) (bool, error) {
	return r[tokenId], nil
}

func TestAuth(t *testing.T) {
	userId := uuid.New()
	signed, claims, err := internal.IssueToken(testSecret, userId, time.Minute)
	require.NoError(t, err)
	revokedToken, revokedClaims, err := internal.IssueToken(testSecret, userId, time.Minute)
	require.NoError(t, err)

	var gotUserId uuid.UUID
	handler := Auth(testSecret, revocations{revokedClaims.ID: true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserId, err = internal.UserIdFromJwtToken(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	testCases := []struct {
		name          string
		authorization string
		expected      int
	}{
		{name: "missing header", authorization: "", expected: http.StatusUnauthorized},
		{name: "wrong scheme", authorization: "Basic abc", expected: http.StatusUnauthorized},
		{name: "garbage token", authorization: "Bearer abc", expected: http.StatusUnauthorized},
		{name: "revoked token", authorization: "Bearer " + revokedToken, expected: http.StatusUnauthorized},
		{name: "valid token", authorization: "Bearer " + signed, expected: http.StatusNoContent},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/carts", nil)
			if tc.authorization != "" {
				r.Header.Set("Authorization", tc.authorization)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tc.expected, w.Code)
		})
	}
	require.NoError(t, err)
	assert.Equal(t, userId, gotUserId)
	assert.NotEmpty(t, claims.ID)
}

func TestLoggingAttachesRequestId(t *testing.T) {
	var requestId string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId = log.RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"password":"secret"}`))
	r.Header.Set("X-Request-Id", "request-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, "request-1", requestId)
	assert.Equal(t, "request-1", w.Header().Get("X-Request-Id"))
}

func TestRecoverPanic(t *testing.T) {
	handler := RecoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLoggingKeepsBodyAndRecordsStatus(t *testing.T) {
	var body string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))

	r := httptest.NewRequest(http.MethodPost, "/carts/items", strings.NewReader(`{"product_id":1,"quantity":2}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, `{"product_id":1,"quantity":2}`, body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestMaskedBody(t *testing.T) {
	r := httptest.NewRequest(
		http.MethodPost,
		"/users/login",
		strings.NewReader(`{"email":"a@b.co","password":"secret","payment_method":"pm_card"}`),
	)

	body := maskedBody(r)

	assert.Equal(t, "a@b.co", body["email"])
	assert.Equal(t, "****", body["password"])
	assert.Equal(t, "****", body["payment_method"])
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"password":"secret"`)
}
