// Package cache holds lookaside caches in front of the persistent store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pdfshare-backend/internal/shared/telemetry"
)

const shareTokenKeyPrefix = "pdfshare:share-token:"

// ShareTokens maps share tokens to document ids. Implementations never fail
// the caller; a miss is always a safe answer.
type ShareTokens interface {
	Get(ctx context.Context, token string) (documentID string, ok bool)
	Set(ctx context.Context, token, documentID string)
}

// redisClient is the subset of *redis.Client used here.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisShareTokens caches token lookups in Redis. Tokens are immutable once
// issued, so entries only expire and are never invalidated.
type RedisShareTokens struct {
	client redisClient
	ttl    time.Duration
}

// Options configures a Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisShareTokens connects to Redis and verifies it answers.
func NewRedisShareTokens(ctx context.Context, opts Options) (*RedisShareTokens, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewShareTokensWithClient(client, opts.TTL), client, nil
}

// NewShareTokensWithClient wraps an existing client.
func NewShareTokensWithClient(client redisClient, ttl time.Duration) *RedisShareTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisShareTokens{client: client, ttl: ttl}
}

func (r *RedisShareTokens) Get(ctx context.Context, token string) (string, bool) {
	val, err := r.client.Get(ctx, shareTokenKeyPrefix+token).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			telemetry.Warn("cache.get_failed", map[string]any{"error": err})
		}
		return "", false
	}
	return val, val != ""
}

func (r *RedisShareTokens) Set(ctx context.Context, token, documentID string) {
	if err := r.client.Set(ctx, shareTokenKeyPrefix+token, documentID, r.ttl).Err(); err != nil {
		telemetry.Warn("cache.set_failed", map[string]any{"error": err})
	}
}

// Noop never caches.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool) { return "", false }
func (Noop) Set(context.Context, string, string)        {}

var (
	_ ShareTokens = (*RedisShareTokens)(nil)
	_ ShareTokens = Noop{}
)
