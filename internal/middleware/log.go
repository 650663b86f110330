package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// fields never written to the request log
var maskedFields = []string{"password", "payment_method", "client_secret", "token"}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func maskedBody(r *http.Request) map[string]interface{} {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	var buffer bytes.Buffer
	body := map[string]interface{}{}
	_ = json.NewDecoder(io.TeeReader(r.Body, &buffer)).Decode(&body)
	r.Body = io.NopCloser(&buffer)
	for _, field := range maskedFields {
		if _, ok := body[field]; ok {
			body[field] = "****"
		}
	}
	return body
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(constants.KEY_HEADER_REQUEST_ID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c, span := otel.Tracer.Start(
			r.Context(),
			"middleware Logging",
			trace.WithAttributes(
				attribute.String(constants.KEY_REQUEST_ID, requestID),
				attribute.String(constants.KEY_REQUEST_METHOD, r.Method),
				attribute.String(constants.KEY_REQUEST_URI, r.RequestURI),
			),
		)
		defer span.End()

		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "middleware Logging").
			Str(constants.KEY_REQUEST_ID, requestID).
			Dict(constants.KEY_REQUEST, zerolog.Dict().
				Str(constants.KEY_REQUEST_HOST, r.Host).
				Str(constants.KEY_REQUEST_IP, r.RemoteAddr).
				Str(constants.KEY_REQUEST_METHOD, r.Method).
				Str(constants.KEY_REQUEST_URI, r.RequestURI).
				Any(constants.KEY_BODY, maskedBody(r))).
			Logger()

		c = log.AttachRequestIDToContext(c, requestID)
		c = logger.WithContext(c)
		w.Header().Set(constants.KEY_HEADER_REQUEST_ID, requestID)
		logger.Trace().Msg("handling request")

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(c))

		span.SetAttributes(attribute.Int(constants.KEY_STATUS_CODE, recorder.status))
		logger.Info().
			Int(constants.KEY_STATUS_CODE, recorder.status).
			Dur(constants.KEY_LATENCY, time.Since(start)).
			Msg("handled request")
	})
}
