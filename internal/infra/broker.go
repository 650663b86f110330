package infra

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
)

func NewBrokerWriter(c context.Context, cfg config.Broker) *kafka.Writer {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewBrokerWriter").
		Str(constants.KEY_PROCESS, "initializing kafka writer").
		Str(constants.KEY_TOPIC, cfg.Topic).
		Strs("brokers", cfg.Brokers).
		Logger()

	logger.Info().Msg("initializing kafka writer")
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	logger.Info().Msg("initialized kafka writer")
	return writer
}

func NewBrokerReader(c context.Context, cfg config.Broker) *kafka.Reader {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "infra NewBrokerReader").
		Str(constants.KEY_PROCESS, "initializing kafka reader").
		Str(constants.KEY_TOPIC, cfg.Topic).
		Strs("brokers", cfg.Brokers).
		Logger()

	logger.Info().Msg("initializing kafka reader")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6,
	})
	logger.Info().Msg("initialized kafka reader")
	return reader
}
