package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestShutdownOtel(t *testing.T) {
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	called := make(chan struct{}, 3)

	err := ShutdownOtel(context.Background(), []ShutdownFunc{
		func(context.Context) error { called <- struct{}{}; return errFirst },
		func(context.Context) error { called <- struct{}{}; return nil },
		func(context.Context) error { called <- struct{}{}; return errSecond },
	})

	assert.Len(t, called, 3)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errSecond)
}

func TestShutdownOtelWithoutFuncs(t *testing.T) {
	assert.NoError(t, ShutdownOtel(context.Background(), nil))
}

func TestRecordError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected codes.Code
		events   int
	}{
		{name: "nil error", err: nil, expected: codes.Unset, events: 0},
		{name: "failure", err: errors.New("failed"), expected: codes.Error, events: 1},
		{
			name:     "cancelled",
			err:      fmt.Errorf("failed loading cart with error=%w", context.Canceled),
			expected: codes.Unset,
			events:   1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			_, span := provider.Tracer("test").Start(context.Background(), "test")

			RecordError(tc.err, span)
			span.End()

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expected, spans[0].Status().Code)
			assert.Len(t, spans[0].Events(), tc.events)
		})
	}
}
