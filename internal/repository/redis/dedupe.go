package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voxora/maestro/internal/repository"
)

var _ repository.DedupeStore = (*redisDedupe)(nil)

const (
	claimKeyPrefix = "maestro:seen:"
	claimTTL       = 30 * 24 * time.Hour
)

type redisDedupe struct {
	client *goredis.Client
}

// NewRedisDedupeStore creates a Redis-backed dedupe store using SETNX.
func NewRedisDedupeStore(client *goredis.Client) repository.DedupeStore {
	return &redisDedupe{client: client}
}

// Claim uses SETNX to atomically claim a request fingerprint.
func (r *redisDedupe) Claim(ctx context.Context, fingerprint string) (bool, error) {
	key := claimKeyPrefix + fingerprint
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: claim fingerprint: %w", err)
	}
	return ok, nil
}

// Release deletes the claim so a later run can retry the request.
func (r *redisDedupe) Release(ctx context.Context, fingerprint string) error {
	key := claimKeyPrefix + fingerprint
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: release fingerprint: %w", err)
	}
	return nil
}
