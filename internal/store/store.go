// Package store provides a pluggable key-value and pub/sub fabric. The
// default backend is in-process memory; a redis backend lets several nodes
// share dirty-site notifications.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Message is a single pub/sub payload.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription is a handle on a pub/sub channel subscription.
type Subscription interface {
	// Channel returns the stream of messages. It is closed when the
	// subscription is closed.
	Channel() <-chan *Message
	// Close terminates the subscription. Idempotent.
	Close() error
}

// Store is the shared key-value + pub/sub interface.
type Store interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Exists(key string) (bool, error)

	Publish(channel string, message []byte) error
	Subscribe(channel string) (Subscription, error)

	Clear() error
	Close() error
}
