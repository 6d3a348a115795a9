package object

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidKey is returned for storage keys that escape their namespace.
var ErrInvalidKey = errors.New("invalid storage key")

// Presigner mints time-limited URLs that let clients move bytes directly
// to and from object storage.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// ObjectURL is the unsigned, stable locator of key.
	ObjectURL(key string) string
	Provider() string
}
