// Package cache stores quotes in Redis between cart and checkout so the
// exact validated terms can be re-supplied at commit time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/reginald-chapple/gembook/internal/models"
)

// QuoteCache keeps quotes verbatim for their TTL. A quote that expires
// before checkout simply forces the storefront to re-quote.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewQuoteCache wraps an existing Redis client.
func NewQuoteCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *QuoteCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &QuoteCache{client: client, ttl: ttl, logger: logger}
}

func quoteKey(id string) string {
	return "gembook:quote:" + id
}

// Put stores the quote under its ID for the configured TTL.
func (c *QuoteCache) Put(ctx context.Context, q *models.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote %s: %w", q.ID, err)
	}
	if err := c.client.Set(ctx, quoteKey(q.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store quote %s: %w", q.ID, err)
	}
	return nil
}

// Get returns the cached quote, or nil when it expired or never existed.
func (c *QuoteCache) Get(ctx context.Context, id string) (*models.Quote, error) {
	data, err := c.client.Get(ctx, quoteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load quote %s: %w", id, err)
	}

	var q models.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("unmarshal quote %s: %w", id, err)
	}
	return &q, nil
}

// Delete drops a quote after it has been committed.
func (c *QuoteCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, quoteKey(id)).Err(); err != nil {
		return fmt.Errorf("delete quote %s: %w", id, err)
	}
	return nil
}
