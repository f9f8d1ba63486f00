package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// 事件在 Redis 中的过期时间（24小时）
	eventTTL = 24 * time.Hour
	// Redis key 前缀
	eventKeyPrefix = "events:"
	// 每个会话保留的事件条数上限
	maxEventsPerSession = 200
)

// RedisStore 基于 Redis list 的事件存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 事件存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SaveEvent 保存事件到会话的事件列表
func (s *RedisStore) SaveEvent(ctx context.Context, evt *Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	key := eventKeyPrefix + evt.SessionID
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxEventsPerSession-1)
	pipe.Expire(ctx, key, eventTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetEvents 获取会话的事件，最新的在前
func (s *RedisStore) GetEvents(ctx context.Context, sessionID string) ([]*Event, error) {
	key := eventKeyPrefix + sessionID
	items, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]*Event, 0, len(items))
	for _, item := range items {
		var evt Event
		if err := json.Unmarshal([]byte(item), &evt); err != nil {
			continue
		}
		events = append(events, &evt)
	}
	return events, nil
}
