package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kardex-ingest/internal/config"
	domain "kardex-ingest/internal/domain/kardex"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates a redis client from the cache configuration
func NewRedisClient(cfg *config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// IngestReceipt is a cached ingestion outcome keyed by an Idempotency-Key
// header. RequestHash guards against the same key being reused with a
// different payload.
type IngestReceipt struct {
	Key         string              `json:"key"`
	RequestHash string              `json:"request_hash"`
	Result      domain.IngestResult `json:"result"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ReceiptCache stores ingest receipts in redis with a TTL so repeated
// submissions of the same kardex can be answered without re-entering the
// ingestion transaction.
type ReceiptCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewReceiptCache creates a receipt cache on the given redis client
func NewReceiptCache(client redis.UniversalClient, ttl time.Duration) *ReceiptCache {
	return &ReceiptCache{
		client: client,
		prefix: "kardex:receipt:",
		ttl:    ttl,
	}
}

// Get returns the receipt stored under key, or nil when none exists
func (c *ReceiptCache) Get(ctx context.Context, key string) (*IngestReceipt, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get receipt from redis: %w", err)
	}

	var receipt IngestReceipt
	if err := json.Unmarshal([]byte(val), &receipt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	return &receipt, nil
}

// Set stores a receipt under its key with the cache TTL
func (c *ReceiptCache) Set(ctx context.Context, receipt *IngestReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+receipt.Key, string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store receipt in redis: %w", err)
	}
	return nil
}

// Ping verifies the redis connection
func (c *ReceiptCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
