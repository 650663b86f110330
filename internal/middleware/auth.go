package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/otel"
)

type RevocationChecker interface {
	IsRevoked(c context.Context, tokenId string) (bool, error)
}

func Auth(secretKey string, revocations RevocationChecker) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, span := otel.Tracer.Start(r.Context(), "middleware Auth")
			defer span.End()

			logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "middleware Auth").Logger()
			c = logger.WithContext(c)

			logger = logger.With().Str(constants.KEY_PROCESS, "reading authorization header").Logger()
			authorization := r.Header.Get(constants.KEY_HEADER_AUTH)
			if len(authorization) <= len("bearer ") || !strings.EqualFold(authorization[:len("bearer ")], "bearer ") {
				otel.RecordError(inErrors.ErrEmptyAuth, span)
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrEmptyAuth)
				return
			}

			logger = logger.With().Str(constants.KEY_PROCESS, "verifying token").Logger()
			token, err := internal.VerifyToken(c, secretKey, authorization[len("bearer "):])
			if err != nil {
				otel.RecordError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
				return
			}
			c = internal.AttachJwtToken(c, token)

			if revocations != nil {
				logger = logger.With().Str(constants.KEY_PROCESS, "checking token revocation").Logger()
				tokenId, _, err := internal.TokenIdFromJwtToken(c)
				if err != nil {
					otel.RecordError(err, span)
					logger.Error().Err(err).Msg(err.Error())
					inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
					return
				}
				revoked, err := revocations.IsRevoked(c, tokenId)
				if err != nil {
					otel.RecordError(err, span)
					logger.Error().Err(err).Msg(err.Error())
					inHttp.WriteFailed(c, w, http.StatusInternalServerError, err)
					return
				}
				if revoked {
					otel.RecordError(inErrors.ErrTokenRevoked, span)
					logger.Error().Err(inErrors.ErrTokenRevoked).Msg(inErrors.ErrTokenRevoked.Error())
					inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenRevoked)
					return
				}
			}
			logger.Trace().Msg("authorized request")

			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
