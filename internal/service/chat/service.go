// Package chat 实现治疗会话编排：
// 会话生命周期、标识解析、单轮对话状态机和历史读取。
package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/mindsage/internal/config"
	"github.com/ashwinyue/mindsage/internal/model"
)

// Store 会话存储接口。所有方法接收上下文，调用方负责超时和取消。
type Store interface {
	CreateSession(ctx context.Context, session *model.ChatSession) error
	GetSessionByInternalID(ctx context.Context, id string) (*model.ChatSession, error)
	GetSessionByExternalID(ctx context.Context, id string) (*model.ChatSession, error)
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]*model.ChatSession, error)
	AppendTurn(ctx context.Context, session *model.ChatSession, userMsg, assistantMsg *model.ChatMessage) error
}

// Gateway 语言模型网关接口
type Gateway interface {
	Analyze(ctx context.Context, message string, history []*schema.Message) *model.Analysis
	Reply(ctx context.Context, message string, analysis *model.Analysis, history []*schema.Message) (string, error)
}

// Telemetry 遥测发送接口，所有方法都是尽力而为
type Telemetry interface {
	SessionCreated(sessionID, ownerID string)
	TurnReceived(sessionID, message string, historyLen int)
}

// 会话锁的分片数
const lockStripes = 64

// Service 会话编排服务
type Service struct {
	repo    Store
	gateway Gateway
	emitter Telemetry
	cfg     config.TherapyConfig

	// 按会话 ID 哈希分片的锁，同一会话的轮次在进程内串行执行。
	// 分片数固定，长期运行不随会话数增长。
	locks [lockStripes]sync.Mutex
}

// NewService 创建会话编排服务
func NewService(repo Store, gateway Gateway, emitter Telemetry, cfg config.TherapyConfig) *Service {
	if cfg.AnonymousOwnerID == "" {
		cfg.AnonymousOwnerID = "anonymous"
	}
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = "New Chat"
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 20
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		emitter: emitter,
		cfg:     cfg,
	}
}

// storeCtx 给单次存储调用加超时上限，同时继承调用方的取消
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.cfg.StoreTimeout)*time.Second)
}

// newInternalID 生成存储层主键（24 位十六进制）
func newInternalID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate session id: %v", err))
	}
	return hex.EncodeToString(buf)
}

// ownerOrAnonymous 未认证调用方归属到配置的匿名所有者
func (s *Service) ownerOrAnonymous(ownerID string) string {
	if ownerID == "" {
		return s.cfg.AnonymousOwnerID
	}
	return ownerID
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// CreateSession 创建会话
func (s *Service) CreateSession(ctx context.Context, ownerID string, req *CreateSessionRequest) (*model.ChatSession, error) {
	title := s.cfg.DefaultTitle
	if req != nil && req.Title != "" {
		title = req.Title
	}

	now := time.Now()
	session := &model.ChatSession{
		InternalID:     newInternalID(),
		ExternalID:     uuid.New().String(),
		OwnerID:        s.ownerOrAnonymous(ownerID),
		Title:          title,
		Status:         model.SessionStatusActive,
		StartedAt:      now,
		LastActivityAt: now,
		Messages:       []model.ChatMessage{},
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.repo.CreateSession(sctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.emitter != nil {
		s.emitter.SessionCreated(session.ExternalID, session.OwnerID)
	}

	return session, nil
}

// SessionSummary 会话摘要
type SessionSummary struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	MessageCount   int       `json:"messageCount"`
	LastMessage    string    `json:"lastMessage,omitempty"`
}

// ListSessions 列出调用方的会话，最新开始的在前。
// 对调用方永不报错：上游失败时降级为返回空列表（只记日志）。
func (s *Service) ListSessions(ctx context.Context, ownerID string) []*SessionSummary {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	sessions, err := s.repo.ListSessionsByOwner(sctx, s.ownerOrAnonymous(ownerID))
	if err != nil {
		log.Printf("Warning: failed to list sessions, returning empty: %v", err)
		return []*SessionSummary{}
	}

	summaries := make([]*SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summary := &SessionSummary{
			ID:             session.InternalID,
			SessionID:      session.ExternalID,
			Title:          session.Title,
			Status:         session.Status,
			StartedAt:      session.StartedAt,
			LastActivityAt: session.LastActivityAt,
			MessageCount:   len(session.Messages),
		}
		if n := len(session.Messages); n > 0 {
			summary.LastMessage = previewContent(session.Messages[n-1].Content, 100)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// previewContent 截取预览文本
func previewContent(content string, max int) string {
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max]) + "..."
}

// GetSession 按引用获取会话（含规范化消息）
func (s *Service) GetSession(ctx context.Context, ref string) (*model.ChatSession, []Message, error) {
	session, err := s.resolveSession(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	messages := make([]Message, 0, len(session.Messages))
	for i := range session.Messages {
		messages = append(messages, NormalizeStored(&session.Messages[i], i))
	}
	return session, messages, nil
}

// GetHistory 获取会话的规范化消息历史。
// 引用不合法报错；会话不存在时返回空历史而不是错误——
// 读路径刻意宽松，调用方看到的效果与没有任何消息一致。
func (s *Service) GetHistory(ctx context.Context, ref string) ([]Message, error) {
	if isInvalidRef(ref) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	session, err := s.resolveSession(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return []Message{}, nil
		}
		return nil, err
	}

	messages := make([]Message, 0, len(session.Messages))
	for i := range session.Messages {
		messages = append(messages, NormalizeStored(&session.Messages[i], i))
	}
	return messages, nil
}

// lockFor 获取会话所在分片的互斥锁
func (s *Service) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}
