package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordError marks span as failed. A cancelled context is recorded as an
// event only, since a client going away is not a failure of the service.
func RecordError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.RecordError(err)
	if errors.Is(err, context.Canceled) {
		return
	}
	span.SetStatus(codes.Error, err.Error())
}
