package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore is the shared online-participant view for multi-instance
// deployments, where the in-memory registry only sees sessions routed to
// this instance. Fan-out stays local (sticky routing by participant is
// assumed); the store only widens getOnlineUsers visibility.
type PresenceStore interface {
	SetOnline(ctx context.Context, user OnlineUser) error
	SetOffline(ctx context.Context, userID string) error
	OnlineUsers(ctx context.Context) ([]OnlineUser, error)
}

const (
	presenceKey = "carechat:online"

	// presenceTTL bounds staleness after an instance dies without cleaning
	// up its participants.
	presenceTTL = 5 * time.Minute
)

// RedisPresenceStore keeps the online set in a Redis hash keyed by
// participant id.
type RedisPresenceStore struct {
	client *redis.Client
}

// NewRedisPresenceStore creates a presence store from a Redis URL.
func NewRedisPresenceStore(redisURL string) (*RedisPresenceStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisPresenceStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisPresenceStore) SetOnline(ctx context.Context, user OnlineUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal presence entry: %w", err)
	}
	if err := s.client.HSet(ctx, presenceKey, user.UserID, data).Err(); err != nil {
		return fmt.Errorf("set online %s: %w", user.UserID, err)
	}
	return s.client.Expire(ctx, presenceKey, presenceTTL).Err()
}

func (s *RedisPresenceStore) SetOffline(ctx context.Context, userID string) error {
	if err := s.client.HDel(ctx, presenceKey, userID).Err(); err != nil {
		return fmt.Errorf("set offline %s: %w", userID, err)
	}
	return nil
}

func (s *RedisPresenceStore) OnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	entries, err := s.client.HGetAll(ctx, presenceKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}

	out := make([]OnlineUser, 0, len(entries))
	for _, raw := range entries {
		var u OnlineUser
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			continue // Skip malformed entries.
		}
		out = append(out, u)
	}
	return out, nil
}

// Ping verifies connectivity at startup.
func (s *RedisPresenceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
