// Package cache keeps loan records in Redis so snapshot reads skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/internal/domain"
)

const keyPrefix = "lending:loan:"

type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func key(loanID uuid.UUID) string {
	return keyPrefix + loanID.String()
}

// Get returns nil without error on a cache miss.
func (c *RedisSnapshotCache) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanRecord, error) {
	raw, err := c.client.Get(ctx, key(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read loan %s from cache: %w", loanID, err)
	}

	var record domain.LoanRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode cached loan %s: %w", loanID, err)
	}
	return &record, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, record *domain.LoanRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode loan %s: %w", record.Loan.ID, err)
	}
	return c.client.Set(ctx, key(record.Loan.ID), raw, c.ttl).Err()
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	return c.client.Del(ctx, key(loanID)).Err()
}
