package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps conversation history in a Redis list per session,
// trimmed to a bounded number of turns.
type RedisStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
// maxTurns bounds how many turns are retained per session; zero keeps
// everything. ttl refreshes on every append; zero disables expiry.
func NewRedisStore(ctx context.Context, addr, password string, db int, maxTurns int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return &RedisStore{client: client, maxTurns: maxTurns, ttl: ttl}, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	key := sessionKeyPrefix + sessionID

	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if s.maxTurns > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending session turns: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	key := sessionKeyPrefix + sessionID

	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session history: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
