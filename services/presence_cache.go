package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"imovia/marketplace-api/config"
)

const (
	presenceKeyPrefix = "presence:"
	onlineSetKey      = "online_users"
)

// PresenceCache mirrors the hub's in-memory presence directory into redis
// with a TTL, so the REST API (and any sibling process) can answer "who is
// online" without holding a chat connection. The in-memory directory stays
// authoritative for routing; this mirror is read-only advisory state.
type PresenceCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewPresenceCache(redisClient *redis.Client, ttl time.Duration) *PresenceCache {
	return &PresenceCache{
		redis: redisClient,
		ttl:   ttl,
	}
}

// NewRedisClient parses the configured URL and verifies connectivity.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.DB = cfg.RedisDB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Add marks a user online, refreshing the TTL on both the per-user key and
// the online set.
func (pc *PresenceCache) Add(ctx context.Context, userID uint) error {
	key := presenceKey(userID)

	pipe := pc.redis.Pipeline()
	pipe.Set(ctx, key, time.Now().Format(time.RFC3339), pc.ttl)
	pipe.SAdd(ctx, onlineSetKey, userID)
	pipe.Expire(ctx, onlineSetKey, pc.ttl*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update presence cache: %w", err)
	}
	return nil
}

// Remove marks a user offline.
func (pc *PresenceCache) Remove(ctx context.Context, userID uint) error {
	pipe := pc.redis.Pipeline()
	pipe.Del(ctx, presenceKey(userID))
	pipe.SRem(ctx, onlineSetKey, userID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove presence cache entry: %w", err)
	}
	return nil
}

// Online returns the user ids whose presence entry has not expired. Entries
// in the set whose per-user key lapsed are cleaned up along the way.
func (pc *PresenceCache) Online(ctx context.Context) ([]uint, error) {
	members, err := pc.redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read online set: %w", err)
	}

	online := make([]uint, 0, len(members))
	var expired []interface{}

	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}

		exists, err := pc.redis.Exists(ctx, presenceKey(uint(id))).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check presence key: %w", err)
		}
		if exists == 0 {
			expired = append(expired, member)
			continue
		}
		online = append(online, uint(id))
	}

	if len(expired) > 0 {
		pc.redis.SRem(ctx, onlineSetKey, expired...)
	}

	return online, nil
}

// RefreshTicker paces the hub's background refresh well inside the TTL.
func (pc *PresenceCache) RefreshTicker() *time.Ticker {
	interval := pc.ttl / 3
	if interval < time.Second {
		interval = time.Second
	}
	return time.NewTicker(interval)
}

func presenceKey(userID uint) string {
	return presenceKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}
