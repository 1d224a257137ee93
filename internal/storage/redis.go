package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionTTL is the default session TTL (40 minutes)
	SessionTTL = 40 * time.Minute

	sessionKeyPrefix = "workflow:session:"
	sessionIndexKey  = "workflow:sessions"
)

// NewRedisClient parses url and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSessionStore keeps workflow sessions in Redis. Each session lives under
// its own key with a TTL; a sorted set scored by timestamp preserves ordering.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore wraps an existing client. ttl <= 0 uses SessionTTL.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Save stores the session and indexes it by timestamp
func (r *RedisSessionStore) Save(ctx context.Context, session *WorkflowSession) error {
	if err := ValidateSession(session); err != nil {
		return err
	}

	data, err := sonic.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	// NX keeps the first score so re-saves do not reorder the listing
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.SessionID), data, r.ttl)
		pipe.ZAddNX(ctx, sessionIndexKey, redis.Z{
			Score:  float64(session.Timestamp.UnixNano()),
			Member: session.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set session data: %w", err)
	}
	return nil
}

// Get loads a session; expired sessions report ErrSessionNotFound
func (r *RedisSessionStore) Get(ctx context.Context, sessionID string) (*WorkflowSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session data: %w", err)
	}

	var session WorkflowSession
	if err := sonic.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &session, nil
}

// List returns live sessions in timestamp order and prunes index entries whose key expired
func (r *RedisSessionStore) List(ctx context.Context) ([]*WorkflowSession, error) {
	ids, err := r.client.ZRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*WorkflowSession, 0, len(ids))
	var expired []any
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			expired = append(expired, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, sessionIndexKey, expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune session index: %w", err)
		}
	}
	return sessions, nil
}

// Delete removes the session and its index entry
func (r *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.ZRem(ctx, sessionIndexKey, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ExtendTTL extends the TTL of a session
func (r *RedisSessionStore) ExtendTTL(ctx context.Context, sessionID string) error {
	if err := r.client.Expire(ctx, sessionKey(sessionID), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to extend TTL: %w", err)
	}
	return nil
}

// TTL gets remaining TTL for a session
func (r *RedisSessionStore) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL: %w", err)
	}
	return ttl, nil
}

// Close closes the Redis connection
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
