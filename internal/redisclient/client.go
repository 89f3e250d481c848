package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"rfp-service/internal/models"
)

const catalogSnapshotKey = "catalog:snapshot"

// ErrSnapshotMiss is returned when no catalog snapshot is cached.
var ErrSnapshotMiss = fmt.Errorf("catalog snapshot not cached")

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetCatalogSnapshot returns the cached catalog snapshot, or ErrSnapshotMiss
// when none is cached.
func (c *Client) GetCatalogSnapshot(ctx context.Context) ([]models.CatalogProduct, error) {
	raw, err := c.rdb.Get(ctx, catalogSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, ErrSnapshotMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog snapshot: %w", err)
	}

	var products []models.CatalogProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	return products, nil
}

// SetCatalogSnapshot caches the catalog snapshot with a TTL. Runs read the
// cached copy so mid-run catalog mutations elsewhere are never observed.
func (c *Client) SetCatalogSnapshot(ctx context.Context, products []models.CatalogProduct, ttl time.Duration) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}
	return c.rdb.Set(ctx, catalogSnapshotKey, raw, ttl).Err()
}

// InvalidateCatalogSnapshot drops the cached snapshot after catalog updates
func (c *Client) InvalidateCatalogSnapshot(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogSnapshotKey).Err()
}

// AcquireRunLock takes a per-RFP lock so concurrent submissions of the same
// RFP don't race; distinct RFPs run concurrently.
func (c *Client) AcquireRunLock(ctx context.Context, rfpID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:run:%s", rfpID), "1", ttl).Result()
}

// ReleaseRunLock releases a per-RFP run lock
func (c *Client) ReleaseRunLock(ctx context.Context, rfpID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:run:%s", rfpID)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}
