package store

import (
	"context"
	"errors"
)

var ErrSlotEmpty = errors.New("storage slot is empty")

// Storage is a durable key-value slot holding the serialized cart.
type Storage interface {
	Get(c context.Context, key string) ([]byte, error)
	Set(c context.Context, key string, value []byte) error
}
