// Package refstore is a reference, Redis-backed store for the latest signed
// RAV per allocation/collection. The aggregation engine itself is stateless
// (spec.md §4.8: "the core itself is stateless; each request is a closed
// session") — this store exists only so a deployment has somewhere to keep
// track of "the previous RAV" between calls; callers are free to use their
// own store instead.
package refstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/graphprotocol/tap-aggregator/internal/tap"
)

const keyPrefix = "tap:rav:"

// ErrNotFound is returned by Get when no RAV is stored under key.
var ErrNotFound = errors.New("refstore: not found")

// Store wraps a redis client with typed Get/Put for each RAV wire version.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func redisKey(version, key string) string {
	return keyPrefix + version + ":" + key
}

// PutRavV1 stores the latest V1 RAV for key (typically the allocation ID).
func (s *Store) PutRavV1(ctx context.Context, key string, rav tap.SignedRavV1) error {
	return s.put(ctx, redisKey("v1", key), rav)
}

// GetRavV1 retrieves the latest V1 RAV for key. Returns ErrNotFound if none
// is stored yet.
func (s *Store) GetRavV1(ctx context.Context, key string) (*tap.SignedRavV1, error) {
	var rav tap.SignedRavV1
	if err := s.get(ctx, redisKey("v1", key), &rav); err != nil {
		return nil, err
	}
	return &rav, nil
}

// PutRavV2 stores the latest V2 RAV for key (typically the collection ID).
func (s *Store) PutRavV2(ctx context.Context, key string, rav tap.SignedRavV2) error {
	return s.put(ctx, redisKey("v2", key), rav)
}

// GetRavV2 retrieves the latest V2 RAV for key. Returns ErrNotFound if none
// is stored yet.
func (s *Store) GetRavV2(ctx context.Context, key string) (*tap.SignedRavV2, error) {
	var rav tap.SignedRavV2
	if err := s.get(ctx, redisKey("v2", key), &rav); err != nil {
		return nil, err
	}
	return &rav, nil
}

// Delete removes the stored RAV of the given version ("v1" or "v2") for key.
func (s *Store) Delete(ctx context.Context, version, key string) error {
	return s.rdb.Del(ctx, redisKey(version, key)).Err()
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("refstore: marshal: %w", err)
	}
	return s.rdb.Set(ctx, key, b, 0).Err()
}

func (s *Store) get(ctx context.Context, key string, dst any) error {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("refstore: get: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("refstore: unmarshal: %w", err)
	}
	return nil
}
