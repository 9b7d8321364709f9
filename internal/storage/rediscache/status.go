// Package rediscache keeps the sync status record in Redis. The record
// lives under a single key with a TTL, so a crashed run degrades to
// idle once the key expires.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mediagraph/internal/domain"
)

const statusKey = "mediagraph:sync:status"

type StatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusStore(client *redis.Client, ttl time.Duration) *StatusStore {
	return &StatusStore{client: client, ttl: ttl}
}

// Get returns the current sync status. A missing or expired key reads
// as idle.
func (s *StatusStore) Get(ctx context.Context) (*domain.SyncStatus, error) {
	raw, err := s.client.Get(ctx, statusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.IdleStatus(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync status: %w", err)
	}

	var status domain.SyncStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode sync status: %w", err)
	}
	return &status, nil
}

// Set overwrites the status record and refreshes its TTL.
func (s *StatusStore) Set(ctx context.Context, status *domain.SyncStatus) error {
	status.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode sync status: %w", err)
	}

	if err := s.client.Set(ctx, statusKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}
