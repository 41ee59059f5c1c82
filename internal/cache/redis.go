// Package cache holds the Redis-backed pieces of the service: the client
// constructor and the token denylist used by logout.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedisClient parses url (redis://[:password@]host:port/db), connects
// and pings with a 5s timeout.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return client, nil
}

// KV is the subset of redis.Cmdable used by RedisDenylist.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDenylist stores revoked token ids with a TTL equal to the token's
// remaining lifetime, so entries disappear on their own.
type RedisDenylist struct {
	Client KV
	Prefix string
	Now    func() time.Time
}

// NewRedisDenylist returns a denylist with the default key prefix.
func NewRedisDenylist(c KV) *RedisDenylist {
	return &RedisDenylist{Client: c, Prefix: "foodgram:revoked:", Now: time.Now}
}

// Revoke marks jti revoked until until. Already-expired tokens are ignored.
func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.Client.Set(ctx, d.Prefix+jti, 1, ttl).Err()
}

// IsRevoked reports whether jti is on the list.
func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.Client.Exists(ctx, d.Prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDenylist) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
