// Package redisstore provides Redis-backed storage, used when the
// known-attacker set must be shared with other tooling.
package redisstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"solana-sandwich-watch/internal/storage"
)

// attacker set key.
const attackerSetKey = "sandwichwatch:known_attackers"

// AttackerStore implements storage.AttackerStore on a Redis set.
type AttackerStore struct {
	rdb *redis.Client
}

// NewAttackerStore connects to Redis and verifies connectivity.
func NewAttackerStore(ctx context.Context, addr, password string, db int) (*AttackerStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &AttackerStore{rdb: rdb}, nil
}

// Compile-time interface check.
var _ storage.AttackerStore = (*AttackerStore)(nil)

// Add registers an attacker address.
func (s *AttackerStore) Add(ctx context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	if err := s.rdb.SAdd(ctx, attackerSetKey, address).Err(); err != nil {
		return fmt.Errorf("add attacker: %w", err)
	}
	return nil
}

// Remove unregisters an attacker address.
func (s *AttackerStore) Remove(ctx context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	if err := s.rdb.SRem(ctx, attackerSetKey, address).Err(); err != nil {
		return fmt.Errorf("remove attacker: %w", err)
	}
	return nil
}

// Contains reports whether the address is in the set.
func (s *AttackerStore) Contains(ctx context.Context, address string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, attackerSetKey, address).Result()
	if err != nil {
		return false, fmt.Errorf("check attacker: %w", err)
	}
	return ok, nil
}

// List returns all registered addresses, sorted for determinism.
func (s *AttackerStore) List(ctx context.Context) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, attackerSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list attackers: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

// Close closes the Redis connection.
func (s *AttackerStore) Close() error {
	return s.rdb.Close()
}
