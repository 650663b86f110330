package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/otel"
)

func CartKey(userId uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userId.String())
}

type RedisStorage struct {
	cache *redis.Client
}

func NewRedisStorage(cache *redis.Client) RedisStorage {
	return RedisStorage{cache: cache}
}

func (s RedisStorage) Get(c context.Context, key string) ([]byte, error) {
	c, span := otel.Tracer.Start(c, "RedisStorage Get")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RedisStorage Get").
		Str(constants.KEY_SLOT_KEY, key).
		Logger()

	logger.Trace().Msg("getting slot from cache")
	value, err := s.cache.Get(c, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Trace().Msg("slot is empty")
			return nil, ErrSlotEmpty
		}
		err = fmt.Errorf("failed getting slot=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("got slot from cache")
	return value, nil
}

func (s RedisStorage) Set(c context.Context, key string, value []byte) error {
	c, span := otel.Tracer.Start(c, "RedisStorage Set")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RedisStorage Set").
		Str(constants.KEY_SLOT_KEY, key).
		Logger()

	logger.Trace().Msg("setting slot to cache")
	if err := s.cache.Set(c, key, value, 0).Err(); err != nil {
		err = fmt.Errorf("failed setting slot=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set slot to cache")
	return nil
}
