package infra

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/otel"
)

var (
	cacheOnce sync.Once
	cache     *redis.Client
)

// NewCacheClient returns the process wide redis client, creating it on first call.
// The process exits when redis cannot be reached.
func NewCacheClient(c context.Context, cfg config.Cache) *redis.Client {
	c, span := otel.Tracer.Start(c, "infra NewCacheClient")
	defer span.End()

	cacheOnce.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "infra NewCacheClient").
			Str(constants.KEY_PROCESS, "initializing cache").
			Logger()

		logger.Info().Msg("initializing cache")
		client, err := newCacheClient(c, cfg)
		if err != nil {
			otel.RecordError(err, span)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		cache = client
		logger.Info().Msg("initialized cache")
	})
	return cache
}

func newCacheClient(c context.Context, cfg config.Cache) (*redis.Client, error) {
	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "infra newCacheClient").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))),
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	logger.Trace().Msg("instrumenting redis client")
	if err := redisotel.InstrumentTracing(client, redisotel.WithAttributes(semconv.DBSystemRedis)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed instrumenting redis tracing with error=%w", err)
	}
	if err := redisotel.InstrumentMetrics(client, redisotel.WithAttributes(semconv.DBSystemRedis)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed instrumenting redis metrics with error=%w", err)
	}
	logger.Trace().Msg("instrumented redis client")

	logger.Trace().Msg("pinging redis")
	if err := client.Ping(c).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed pinging redis with error=%w", err)
	}
	logger.Trace().Msg("pinged redis")
	return client, nil
}
