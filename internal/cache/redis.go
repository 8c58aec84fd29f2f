// Package cache keeps medication autocomplete results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pharmalink/m/domain"
)

const keyPrefix = "pharmalink:medsearch:"

// Medications is a read-through cache for autocomplete. Redis failures are
// logged and treated as misses.
type Medications struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Open connects to addr and pings it. It returns nil, nil when addr is empty.
func Open(ctx context.Context, addr, password string, ttl time.Duration, log *zap.Logger) (*Medications, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          0,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, ttl, log), nil
}

func New(client *redis.Client, ttl time.Duration, log *zap.Logger) *Medications {
	return &Medications{client: client, ttl: ttl, log: log}
}

func (c *Medications) Get(ctx context.Context, query string) ([]domain.Medication, bool) {
	raw, err := c.client.Get(ctx, key(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("medication cache get failed", zap.String("query", query), zap.Error(err))
		}
		return nil, false
	}
	var meds []domain.Medication
	if err := json.Unmarshal(raw, &meds); err != nil {
		c.log.Warn("medication cache entry corrupt", zap.String("query", query), zap.Error(err))
		return nil, false
	}
	return meds, true
}

func (c *Medications) Set(ctx context.Context, query string, meds []domain.Medication) {
	raw, err := json.Marshal(meds)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(query), raw, c.ttl).Err(); err != nil {
		c.log.Warn("medication cache set failed", zap.String("query", query), zap.Error(err))
	}
}

// Purge drops every cached autocomplete result. It returns the number of
// keys removed.
func (c *Medications) Purge(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("purge medication cache: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan medication cache: %w", err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("purge medication cache: %w", err)
	}
	return removed, nil
}

func (c *Medications) Close() error {
	return c.client.Close()
}

func key(query string) string {
	return keyPrefix + query
}
