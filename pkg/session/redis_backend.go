package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agora-dev/agora/internal/sim"
)

// RedisBackend journals sessions in Redis, suitable when several service
// instances should share the journal.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys (default: "agora:session:").
	Prefix string
	// SessionTTL is the journal expiry duration (0 = never expire).
	SessionTTL time.Duration
}

// NewRedisBackend creates a Redis journal and verifies connectivity.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisBackendFromClient(client, cfg.Prefix, cfg.SessionTTL), nil
}

// NewRedisBackendFromClient creates a Redis backend from an existing client.
// Useful for testing with miniredis.
func NewRedisBackendFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "agora:session:"
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (b *RedisBackend) stateKey(sessionID string) string {
	return b.prefix + "state:" + sessionID
}

func (b *RedisBackend) roundsKey(sessionID string) string {
	return b.prefix + "rounds:" + sessionID
}

func (b *RedisBackend) indexKey() string {
	return b.prefix + "ids"
}

func (b *RedisBackend) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// SaveState stores the latest state snapshot for a session.
func (b *RedisBackend) SaveState(ctx context.Context, sessionID string, state *sim.State) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.stateKey(sessionID), data, b.ttl)
	pipe.SAdd(ctx, b.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState retrieves the last stored snapshot.
func (b *RedisBackend) LoadState(ctx context.Context, sessionID string) (*sim.State, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	data, err := b.client.Get(ctx, b.stateKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var state sim.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &state, nil
}

// AppendRound appends a round result to the session journal.
func (b *RedisBackend) AppendRound(ctx context.Context, sessionID string, result *sim.RoundResult) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, b.roundsKey(sessionID), data)
	if b.ttl > 0 {
		pipe.Expire(ctx, b.roundsKey(sessionID), b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append round: %w", err)
	}
	return nil
}

// LoadRounds retrieves all journaled round results in order.
func (b *RedisBackend) LoadRounds(ctx context.Context, sessionID string) ([]*sim.RoundResult, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	raw, err := b.client.LRange(ctx, b.roundsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	rounds := make([]*sim.RoundResult, 0, len(raw))
	for _, item := range raw {
		var result sim.RoundResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("parse journaled round: %w", err)
		}
		rounds = append(rounds, &result)
	}
	return rounds, nil
}

// ListSessions returns the ids of all journaled sessions.
func (b *RedisBackend) ListSessions(ctx context.Context) ([]string, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	ids, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteSession removes a session's journal.
func (b *RedisBackend) DeleteSession(ctx context.Context, sessionID string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.stateKey(sessionID), b.roundsKey(sessionID))
	pipe.SRem(ctx, b.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.client.Close()
}
