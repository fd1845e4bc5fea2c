// Package redis provides the Redis-backed session store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"guildq/internal/config"
	"guildq/internal/domain"
	"guildq/internal/metrics"
)

const storeName = "redis"

// SessionStore implements store.SessionStore using Redis.
// Each session is a JSON string under <prefix>session:<guild>, and the set
// <prefix>sessions indexes open guilds for counting.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(cfg *config.RedisConfig) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewSessionStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewSessionStoreWithClient wraps an existing client.
func NewSessionStoreWithClient(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) sessionKey(guildID uint64) string {
	return s.prefix + "session:" + strconv.FormatUint(guildID, 10)
}

func (s *SessionStore) indexKey() string {
	return s.prefix + "sessions"
}

// Get returns the guild's session, or nil if none is open.
func (s *SessionStore) Get(ctx context.Context, guildID uint64) (session *domain.VoiceSession, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "read", time.Since(start).Seconds(), err) }()

	data, err := s.client.Get(ctx, s.sessionKey(guildID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var result domain.VoiceSession
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &result, nil
}

// Set stores or replaces the guild's session.
func (s *SessionStore) Set(ctx context.Context, session *domain.VoiceSession) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "write", time.Since(start).Seconds(), err) }()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(session.GuildID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), strconv.FormatUint(session.GuildID, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// Delete removes the guild's session.
func (s *SessionStore) Delete(ctx context.Context, guildID uint64) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "delete", time.Since(start).Seconds(), err) }()

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.sessionKey(guildID))
		pipe.SRem(ctx, s.indexKey(), strconv.FormatUint(guildID, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Count returns the number of open sessions.
func (s *SessionStore) Count(ctx context.Context) (count int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage(storeName, "count", time.Since(start).Seconds(), err) }()

	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(n), nil
}

// Close closes the Redis client connection.
func (s *SessionStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
