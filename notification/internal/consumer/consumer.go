package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/notification/internal/otel"
)

var ErrMalformedMessage = errors.New("malformed order confirmation")

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "notification",
		Name:      "order_confirmations_total",
		Help:      "Order confirmation messages consumed, by result.",
	},
	[]string{"result"},
)

type MessageReader interface {
	ReadMessage(c context.Context) (kafka.Message, error)
}

// Consumer turns order confirmations from the broker into customer notifications.
type Consumer struct {
	reader MessageReader
}

func NewConsumer(reader MessageReader) *Consumer {
	return &Consumer{reader: reader}
}

// Run reads until c is cancelled. Malformed messages are logged and skipped.
func (consumer *Consumer) Run(c context.Context) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Consumer Run").
		Logger()

	logger.Info().Msg("consuming order confirmations")
	for {
		msg, err := consumer.reader.ReadMessage(c)
		if err != nil {
			if c.Err() != nil {
				logger.Info().Msg("stopped consuming order confirmations")
				return nil
			}
			err = fmt.Errorf("failed reading message with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}

		if _, err := consumer.Handle(c, msg); err != nil {
			notificationsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		notificationsTotal.WithLabelValues("notified").Inc()
	}
}

func (consumer *Consumer) Handle(c context.Context, msg kafka.Message) (response.Confirmation, error) {
	c, span := otel.Tracer.Start(c, "Consumer Handle")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "Consumer Handle").
		Str(constants.KEY_TOPIC, msg.Topic).
		Int64("offset", msg.Offset).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding order confirmation").Logger()
	logger.Trace().Msg("decoding order confirmation")
	confirmation := response.Confirmation{}
	if err := json.Unmarshal(msg.Value, &confirmation); err != nil {
		err = fmt.Errorf("failed decoding order confirmation with error=%w", errors.Join(ErrMalformedMessage, err))
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	if confirmation.OrderNumber == "" {
		err := fmt.Errorf("failed decoding order confirmation with error=%w", ErrMalformedMessage)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	logger.Trace().Msg("decoded order confirmation")

	logger.Info().
		Str(constants.KEY_PROCESS, "notifying customer").
		Str(constants.KEY_ORDER_NUMBER, confirmation.OrderNumber).
		Str(constants.KEY_USER_ID, confirmation.UserId).
		Stringer(constants.KEY_TOTAL, confirmation.Total).
		Msgf("order %s confirmed for a total of %s", confirmation.OrderNumber, confirmation.Total.StringFixed(2))

	return confirmation, nil
}
