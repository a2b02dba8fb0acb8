package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banterlabs/banter/internal/models"
)

const (
	replyCacheTTL = 5 * time.Minute
	recentTTL     = 24 * time.Hour
)

// RedisStore handles Redis operations for caching and rate limiting.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that needs raw access.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// replyCacheKey returns the key for a cached assistant reply.
func replyCacheKey(threadID, prompt, style string) string {
	sum := sha256.Sum256([]byte(prompt + "\x00" + style))
	return fmt.Sprintf("reply:%s:%s", threadID, hex.EncodeToString(sum[:8]))
}

// recentRepliesKey returns the key for a thread's recent reply set.
func recentRepliesKey(threadID string) string {
	return fmt.Sprintf("thread:%s:recent", threadID)
}

// GetCachedReply returns a previously generated reply for the same prompt
// and style in a thread, or nil when no cache entry exists.
func (s *RedisStore) GetCachedReply(ctx context.Context, threadID, prompt, style string) (*models.Message, error) {
	key := replyCacheKey(threadID, prompt, style)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, nil
	}
	return &msg, nil
}

// SetCachedReply caches a generated reply so an identical resend within the
// TTL gets the same answer back.
func (s *RedisStore) SetCachedReply(ctx context.Context, threadID, prompt, style string, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, replyCacheKey(threadID, prompt, style), data, replyCacheTTL).Err()
}

// RememberReply records a reply in the thread's recent set, used to avoid
// repeating the same canned line back to back.
func (s *RedisStore) RememberReply(ctx context.Context, threadID, reply string) {
	key := recentRepliesKey(threadID)
	s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: reply,
	})
	s.client.Expire(ctx, key, recentTTL)
}

// RecentReplies returns the most recent replies in a thread, newest first.
func (s *RedisStore) RecentReplies(ctx context.Context, threadID string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	replies, err := s.client.ZRevRange(ctx, recentRepliesKey(threadID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil
	}
	return replies
}
