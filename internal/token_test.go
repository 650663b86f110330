package internal

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/errors"
)

const testSecret = "secret"

func TestIssueAndVerifyToken(t *testing.T) {
	c := context.Background()
	userId := uuid.New()

	signed, claims, err := IssueToken(testSecret, userId, 30*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	token, err := VerifyToken(c, testSecret, signed)
	require.NoError(t, err)

	c = AttachJwtToken(c, token)
	got, err := UserIdFromJwtToken(c)
	require.NoError(t, err)
	assert.Equal(t, userId, got)

	tokenId, expiresAt, err := TokenIdFromJwtToken(c)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, tokenId)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, time.Minute)
}

func TestVerifyTokenRejects(t *testing.T) {
	c := context.Background()

	signed, _, err := IssueToken(testSecret, uuid.New(), 30*time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken(c, "other-secret", signed)
	assert.ErrorIs(t, err, errors.ErrTokenInvalid)

	expired, _, err := IssueToken(testSecret, uuid.New(), -time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken(c, testSecret, expired)
	assert.ErrorIs(t, err, errors.ErrTokenInvalid)
}

func TestUserIdFromJwtTokenWithoutToken(t *testing.T) {
	_, err := UserIdFromJwtToken(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestTokenRevoker(t *testing.T) {
	mr := miniredis.RunT(t)
	revoker := NewTokenRevoker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	c := context.Background()

	revoked, err := revoker.IsRevoked(c, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, revoker.Revoke(c, "jti", time.Now().Add(time.Minute)))
	revoked, err = revoker.IsRevoked(c, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, revoker.Revoke(c, "old", time.Now().Add(-time.Minute)))
	revoked, err = revoker.IsRevoked(c, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = revoker.IsRevoked(c, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}
