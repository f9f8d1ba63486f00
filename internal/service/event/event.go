// Package event 提供尽力而为的遥测事件发送。
// 事件发送永远不在请求的关键路径上：发送失败只记日志，绝不向上冒泡。
package event

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// EventSessionCreated 会话创建事件
	EventSessionCreated EventType = "therapy/session.created"
	// EventTurnReceived 收到用户消息事件
	EventTurnReceived EventType = "therapy/session.message"
)

// Event 遥测事件
type Event struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	EventType EventType              `json:"event_type"`
	Data      string                 `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Store 事件存储接口
type Store interface {
	SaveEvent(ctx context.Context, evt *Event) error
	GetEvents(ctx context.Context, sessionID string) ([]*Event, error)
}

// Emitter 遥测发送器
type Emitter struct {
	store   Store
	timeout time.Duration
}

// NewEmitter 创建遥测发送器，store 可以为 nil（此时发送为空操作）
func NewEmitter(store Store) *Emitter {
	return &Emitter{
		store:   store,
		timeout: 5 * time.Second,
	}
}

// Publish 异步发送事件。立即返回，发送结果不影响调用方。
func (e *Emitter) Publish(evt *Event) {
	if e.store == nil {
		return
	}

	if evt.ID == "" {
		evt.ID = "evt_" + uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	go func() {
		// 独立于请求生命周期的超时上下文
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.store.SaveEvent(ctx, evt); err != nil {
			log.Printf("Warning: telemetry event %s failed (ignored): %v", evt.EventType, err)
		}
	}()
}

// Events 读取会话已保存的遥测事件，最新的在前。store 为 nil 时返回空列表。
func (e *Emitter) Events(ctx context.Context, sessionID string) ([]*Event, error) {
	if e.store == nil {
		return []*Event{}, nil
	}
	return e.store.GetEvents(ctx, sessionID)
}

// SessionCreated 发送会话创建事件
func (e *Emitter) SessionCreated(sessionID, ownerID string) {
	e.Publish(&Event{
		SessionID: sessionID,
		EventType: EventSessionCreated,
		Metadata:  map[string]interface{}{"owner_id": ownerID},
	})
}

// TurnReceived 发送用户消息事件
func (e *Emitter) TurnReceived(sessionID, message string, historyLen int) {
	e.Publish(&Event{
		SessionID: sessionID,
		EventType: EventTurnReceived,
		Data:      message,
		Metadata:  map[string]interface{}{"history_len": historyLen},
	})
}
