package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/models"
)

const cartTTL = 72 * time.Hour

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity.
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

// SaveCart persists the cart snapshot for a session so the cart survives
// process restarts.
func (c *Client) SaveCart(ctx context.Context, sessionID string, lines []models.CartLine) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	key := fmt.Sprintf("cart:%s", sessionID)
	if err := c.rdb.Set(ctx, key, payload, cartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// LoadCart restores a persisted cart snapshot. A missing key yields an
// empty cart, not an error.
func (c *Client) LoadCart(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	key := fmt.Sprintf("cart:%s", sessionID)
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return lines, nil
}

// ClearCart removes the persisted cart snapshot for a session.
func (c *Client) ClearCart(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("cart:%s", sessionID)).Err()
}

// ReserveSubmission claims a one-shot idempotency key for an order
// submission. Returns false when the key was already claimed, meaning a
// duplicate submit is in flight or already landed.
func (c *Client) ReserveSubmission(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("submission:%s", key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve submission key: %w", err)
	}
	return ok, nil
}

// ReleaseSubmission frees an idempotency key after a failed submission so
// the customer can retry.
func (c *Client) ReleaseSubmission(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("submission:%s", key)).Err()
}
