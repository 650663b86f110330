package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/otel"
)

func VerifyToken(c context.Context, secretKey string, token string) (*jwt.Token, error) {
	c, span := otel.Tracer.Start(c, "VerifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "VerifyToken").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing claims").Logger()
	logger.Trace().Msg("parsing claims")
	jwtToken, err := jwt.ParseWithClaims(token,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
		jwt.WithAudience(constants.AUDIENCE_USER),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.APP_USER_SERVICE),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		otel.RecordError(err, span)
		return nil, fmt.Errorf("%w: %w", errors.ErrTokenInvalid, err)
	}
	logger.Info().Msg("parsed claims")

	logger = logger.With().Str(constants.KEY_PROCESS, "validating token").Logger()
	logger.Trace().Msg("validating token")
	if !jwtToken.Valid {
		err = fmt.Errorf("failed validating token with error=%w", errors.ErrTokenInvalid)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, errors.ErrTokenInvalid
	}
	logger.Info().Msg("validated token")

	return jwtToken, nil
}

// IssueToken signs an HS256 token for userId that expires after ttl.
func IssueToken(secretKey string, userId uuid.UUID, ttl time.Duration) (string, *jwt.RegisteredClaims, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Audience:  jwt.ClaimStrings{constants.AUDIENCE_USER},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    constants.APP_USER_SERVICE,
		NotBefore: jwt.NewNumericDate(now),
		Subject:   userId.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		return "", nil, fmt.Errorf("failed signing token with error=%w", err)
	}
	return signed, claims, nil
}

type jwtToken struct{}

func AttachJwtToken(c context.Context, jwt *jwt.Token) context.Context {
	return context.WithValue(c, jwtToken{}, jwt)
}

func JwtTokenFromContext(c context.Context) *jwt.Token {
	token, _ := c.Value(jwtToken{}).(*jwt.Token)
	return token
}

func UserIdFromJwtToken(c context.Context) (uuid.UUID, error) {
	c, span := otel.Tracer.Start(c, "UserIdFromJwtToken")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "UserIdFromJwtToken").Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId from jwtToken").Logger()
	logger.Trace().Msg("getting jwtToken from context")
	span.AddEvent("getting jwtToken from context")
	jwt := JwtTokenFromContext(c)
	if jwt == nil {
		err := fmt.Errorf("failed getting jwtToken from context with error=%w", errors.ErrUnauthorized)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}
	subject, err := jwt.Claims.GetSubject()
	if err != nil || subject == "" {
		err = fmt.Errorf("failed getting subject from jwt with error=%w", errors.ErrEmptySubject)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}
	span.AddEvent("got subject from jwtToken")
	logger.Trace().Msg("got subject from jwtToken")

	logger.Trace().Msg("parsing subject")
	userId, err := uuid.Parse(subject)
	if err != nil {
		err = fmt.Errorf("failed parsing subject=%s with error=%w", subject, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}
	span.AddEvent("parsed subject as userId")
	logger.Trace().Str(constants.KEY_USER_ID, userId.String()).Msg("parsed subject as userId")

	return userId, nil
}

// TokenIdFromJwtToken returns the jti of the token attached to c.
func TokenIdFromJwtToken(c context.Context) (string, time.Time, error) {
	token := JwtTokenFromContext(c)
	if token == nil {
		return "", time.Time{}, errors.ErrUnauthorized
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", time.Time{}, errors.ErrTokenInvalid
	}
	expiresAt := time.Now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.ID, expiresAt, nil
}

// TokenRevoker keeps revoked token ids in redis until the token would have expired anyway.
type TokenRevoker struct {
	cache *redis.Client
}

func NewTokenRevoker(cache *redis.Client) *TokenRevoker {
	return &TokenRevoker{cache: cache}
}

func revokedKey(tokenId string) string {
	return fmt.Sprintf("revoked-token:%s", tokenId)
}

func (r *TokenRevoker) Revoke(c context.Context, tokenId string, expiresAt time.Time) error {
	c, span := otel.Tracer.Start(c, "TokenRevoker Revoke")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "TokenRevoker Revoke").
		Str(constants.KEY_TOKEN_ID, tokenId).
		Logger()

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		logger.Trace().Msg("token already expired")
		return nil
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "revoking token").Logger()
	logger.Trace().Msg("revoking token")
	if err := r.cache.Set(c, revokedKey(tokenId), 1, ttl).Err(); err != nil {
		err = fmt.Errorf("failed revoking token with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("revoked token")
	return nil
}

func (r *TokenRevoker) IsRevoked(c context.Context, tokenId string) (bool, error) {
	c, span := otel.Tracer.Start(c, "TokenRevoker IsRevoked")
	defer span.End()

	n, err := r.cache.Exists(c, revokedKey(tokenId)).Result()
	if err != nil {
		err = fmt.Errorf("failed checking token revocation with error=%w", err)
		otel.RecordError(err, span)
		return false, err
	}
	return n > 0, nil
}
