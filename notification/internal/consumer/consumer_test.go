package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/response"
)

type channelReader struct {
	messages chan kafka.Message
}

func (r channelReader) ReadMessage(c context.Context) (kafka.Message, error) {
	select {
	case <-c.Done():
		return kafka.Message{}, c.Err()
	case msg := <-r.messages:
		return msg, nil
	}
}

func confirmationMessage(t *testing.T, orderNumber string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(response.Confirmation{
		OrderNumber: orderNumber,
		UserId:      "user",
		Total:       decimal.RequireFromString("64.80"),
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(orderNumber), Value: value}
}

func TestHandle(t *testing.T) {
	consumer := NewConsumer(nil)

	confirmation, err := consumer.Handle(context.Background(), confirmationMessage(t, "ORDER_1"))
	require.NoError(t, err)
	assert.Equal(t, "ORDER_1", confirmation.OrderNumber)
	assert.True(t, decimal.RequireFromString("64.8").Equal(confirmation.Total))

	_, err = consumer.Handle(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = consumer.Handle(context.Background(), kafka.Message{Value: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestRunSkipsMalformedMessages(t *testing.T) {
	notifiedBefore := testutil.ToFloat64(notificationsTotal.WithLabelValues("notified"))
	skippedBefore := testutil.ToFloat64(notificationsTotal.WithLabelValues("skipped"))

	reader := channelReader{messages: make(chan kafka.Message, 3)}
	reader.messages <- confirmationMessage(t, "ORDER_1")
	reader.messages <- kafka.Message{Value: []byte("garbage")}
	reader.messages <- confirmationMessage(t, "ORDER_2")

	c, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewConsumer(reader).Run(c) }()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(notificationsTotal.WithLabelValues("notified"))-notifiedBefore == 2
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(notificationsTotal.WithLabelValues("skipped"))-skippedBefore)
}
