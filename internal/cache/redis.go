package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/surveytriage/internal/model"
	"github.com/redis/go-redis/v9"
)

// Defaults for the Redis cache.
const (
	// DefaultPrefix namespaces every key written by the cache.
	DefaultPrefix = "surveytriage:"

	// DefaultTTL is how long a page stays cached.
	DefaultTTL = 7 * 24 * time.Hour

	// connectionTimeout bounds the ping in NewClient.
	connectionTimeout = 5 * time.Second
)

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// Config holds Redis connection settings.
type Config struct {
	// Address is the Redis server in host:port form.
	Address string `yaml:"address"`

	// Password is optional.
	Password string `yaml:"password"`

	// DB selects the Redis database.
	DB int `yaml:"db"`
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Redis is a page cache backed by Redis. It is safe for concurrent use.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Redis cache.
type Option func(*Redis)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithTTL sets the entry lifetime. Non-positive values store entries without expiry.
func WithTTL(ttl time.Duration) Option {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// NewRedis creates a Redis cache on top of client.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the Redis key for page.
func (r *Redis) Key(page string) string {
	return r.prefix + "page:" + page
}

// Get returns the cached info for page.
func (r *Redis) Get(ctx context.Context, page string) (model.PageInfo, bool, error) {
	data, err := r.client.Get(ctx, r.Key(page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PageInfo{}, false, nil
	}
	if err != nil {
		return model.PageInfo{}, false, fmt.Errorf("failed to read page cache: %w", err)
	}

	var info model.PageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return model.PageInfo{}, false, fmt.Errorf("failed to decode cached page %q: %w", page, err)
	}
	return info, true, nil
}

// Put stores info under info.Page.
func (r *Redis) Put(ctx context.Context, info model.PageInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode page %q: %w", info.Page, err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.Key(info.Page), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write page cache: %w", err)
	}
	return nil
}

// Invalidate removes page from the cache.
func (r *Redis) Invalidate(ctx context.Context, page string) error {
	if err := r.client.Del(ctx, r.Key(page)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate page %q: %w", page, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
