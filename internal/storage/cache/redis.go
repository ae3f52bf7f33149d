// Package cache provides a Redis-backed two-tier cache: a query-embedding
// cache for the hybrid retrieval engine, and a Model Registry Cache mirror
// so a multi-replica deployment doesn't pay the model-discovery cost on
// every process. A nil *Client is valid throughout and every method
// degrades to a cache miss, so callers wire it unconditionally and only
// pay for Redis when it is actually configured.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/AlessandroBorges/jsimplerag-go/internal/config"
)

const (
	defaultQueryCacheTTL = 10 * time.Minute
	registryInvalidateCh = "jsimplerag:registry:invalidate"
	registryHashKey      = "jsimplerag:registry:models"
)

// Client wraps a Redis connection for the query-embedding cache and the
// registry mirror. A nil *Client is valid; every method then no-ops or
// reports a cache miss.
type Client struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewClient builds a Client when cfg.Enabled, or returns (nil, nil) so
// callers can wire it unconditionally.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSInsecureSkipVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	ttl := defaultQueryCacheTTL
	if cfg.QueryCacheTTLSeconds > 0 {
		ttl = time.Duration(cfg.QueryCacheTTLSeconds) * time.Second
	}
	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetQueryEmbedding returns a cached embedding vector for a (model, query)
// pair. The second return is false on a miss or when caching is disabled.
func (c *Client) GetQueryEmbedding(ctx context.Context, model, query string) ([]float32, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, queryKey(model, query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("cache: query embedding get failed")
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		log.Warn().Err(err).Msg("cache: query embedding decode failed")
		return nil, false
	}
	return vec, true
}

// SetQueryEmbedding caches a query's embedding vector under the client's
// configured TTL. Failures are logged, not returned: a cache write failure
// must never fail the search it is accelerating.
func (c *Client) SetQueryEmbedding(ctx context.Context, model, query string, vector []float32) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(vector)
	if err != nil {
		log.Warn().Err(err).Msg("cache: query embedding encode failed")
		return
	}
	if err := c.rdb.Set(ctx, queryKey(model, query), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("cache: query embedding set failed")
	}
}

func queryKey(model, query string) string {
	return "jsimplerag:qcache:" + model + ":" + query
}

// PublishRegistry mirrors the current model-name to provider-name mapping
// to Redis and fans out an invalidation so other replicas know to reread
// it. The provider objects themselves stay process-local; only the
// routing decision (which provider name serves which model) is shared.
func (c *Client) PublishRegistry(ctx context.Context, mapping map[string]string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if len(mapping) == 0 {
		return nil
	}
	fields := make(map[string]any, len(mapping))
	for model, provider := range mapping {
		fields[model] = provider
	}
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, registryHashKey)
	pipe.HSet(ctx, registryHashKey, fields)
	pipe.Publish(ctx, registryInvalidateCh, time.Now().Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache: publish registry: %w", err)
	}
	return nil
}

// LoadRegistry reads the mirrored model-name to provider-name mapping.
// Returns an empty map on a miss.
func (c *Client) LoadRegistry(ctx context.Context) (map[string]string, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	out, err := c.rdb.HGetAll(ctx, registryHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: load registry: %w", err)
	}
	return out, nil
}

// WatchRegistryInvalidation subscribes to registry-refresh notifications
// from other replicas. The returned channel closes when cancel is called.
func (c *Client) WatchRegistryInvalidation(ctx context.Context) (<-chan struct{}, func()) {
	if c == nil || c.rdb == nil {
		ch := make(chan struct{})
		close(ch)
		return ch, func() {}
	}
	sub := c.rdb.Subscribe(ctx, registryInvalidateCh)
	ch := make(chan struct{}, 1)
	go func() {
		for range sub.Channel() {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	cancel := func() {
		_ = sub.Close()
		close(ch)
	}
	return ch, cancel
}
