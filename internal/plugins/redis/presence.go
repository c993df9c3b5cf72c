package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore mirrors the durable online flag with TTL keys, so a
// crashed client eventually reads as offline without any cleanup job.
type RedisPresenceStore struct {
	rdb *redis.Client
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{rdb: rdb}
}

func onlineKey(userID string) string {
	return "online:" + userID
}

func (p *RedisPresenceStore) SetOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return p.rdb.Set(ctx, onlineKey(userID), "1", ttl).Err()
}

func (p *RedisPresenceStore) SetOffline(ctx context.Context, userID string) error {
	return p.rdb.Del(ctx, onlineKey(userID)).Err()
}

func (p *RedisPresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := p.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *RedisPresenceStore) OnlineOf(ctx context.Context, userIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = onlineKey(id)
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		online[userIDs[i]] = v != nil
	}
	return online, nil
}
