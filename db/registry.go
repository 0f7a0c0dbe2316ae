package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"andiamo/entity"
)

// RedisRegistry is the denormalized gate-side lookup index. One hash per
// secure token lets the scanner resolve a ticket with a single key read and
// no joins. The registry is sink-only and eventually consistent; callers
// treat insert failures as best-effort.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	if client == nil {
		panic("redis client is nil")
	}
	return &RedisRegistry{client: client}
}

func registryKey(token string) string {
	return "registry:" + token
}

func (r *RedisRegistry) Insert(ctx context.Context, entry entity.RegistryEntry) error {
	err := r.client.HSet(ctx, registryKey(entry.Token), entry).Err()
	if err != nil {
		return fmt.Errorf("could not insert registry entry for token %s: %w", entry.Token, err)
	}
	return nil
}

// Lookup is used by tests and ad-hoc inspection; the production gate scanner
// reads the hash directly.
func (r *RedisRegistry) Lookup(ctx context.Context, token string) (entity.RegistryEntry, error) {
	var entry entity.RegistryEntry
	err := r.client.HGetAll(ctx, registryKey(token)).Scan(&entry)
	if err != nil {
		return entity.RegistryEntry{}, fmt.Errorf("could not look up registry entry for token %s: %w", token, err)
	}
	if entry.Token == "" {
		return entity.RegistryEntry{}, fmt.Errorf("no registry entry for token %s", token)
	}
	return entry, nil
}
