package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "conversation:"

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository shares an already connected client
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisRepository) Load(ctx context.Context, sessionID string) (*ConversationHistory, error) {
	key := keyPrefix + sessionID
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &ConversationHistory{Messages: []*schema.Message{}}, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var history ConversationHistory
	if err := sonic.UnmarshalString(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	// Refresh TTL
	r.client.Expire(ctx, key, r.ttl)
	return &history, nil
}

func (r *RedisRepository) Save(ctx context.Context, sessionID string, history *ConversationHistory) error {
	data, err := sonic.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	return r.client.Set(ctx, keyPrefix+sessionID, data, r.ttl).Err()
}

func (r *RedisRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	history, err := r.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	history.Messages = append(history.Messages, message)
	return r.Save(ctx, sessionID, history)
}

func (r *RedisRepository) GetContextForModel(ctx context.Context, sessionID string, strategy ContextStrategy) (string, error) {
	history, err := r.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}

	return strategy.BuildContext(history.Messages), nil
}

func (r *RedisRepository) Clear(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, keyPrefix+sessionID).Err()
}
