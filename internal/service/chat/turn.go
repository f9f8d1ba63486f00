package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/mindsage/internal/model"
)

// turnState 单轮对话状态机的状态
type turnState string

const (
	stateResolvingSession turnState = "resolving_session"
	stateBuildingContext  turnState = "building_context"
	stateAnalyzing        turnState = "analyzing"
	stateReplying         turnState = "replying"
	statePersisting       turnState = "persisting"
	stateDone             turnState = "done"
)

// 标题从首条用户消息截取的长度
const titleMaxLen = 50

// TurnResult 一轮对话的结果
type TurnResult struct {
	Reply    string                 `json:"response"`
	Analysis *model.Analysis        `json:"analysis"`
	Metadata *model.MessageMetadata `json:"metadata"`
}

// PostTurn 处理一条入站用户消息，走完整的状态机：
// 解析会话 → 构建上下文 → 分析 → 生成回复 → 原子落盘。
// 分析失败静默降级；回复或落盘失败则整轮失败，不留半轮消息。
func (s *Service) PostTurn(ctx context.Context, ref, message string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	// ResolvingSession
	session, err := s.resolveSession(ctx, ref)
	if err != nil {
		return nil, err
	}

	// 同一会话的轮次进程内串行；锁内重读拿到最新的消息序列和版本号
	mu := s.lockFor(session.InternalID)
	mu.Lock()
	defer mu.Unlock()

	rctx, rcancel := s.storeCtx(ctx)
	session, err = s.repo.GetSessionByInternalID(rctx, session.InternalID)
	rcancel()
	if err != nil {
		return nil, s.abort(stateResolvingSession, err)
	}

	// BuildingContext：无失败路径
	history := s.buildContext(session)

	// 遥测在分析开始前发出，结果不影响状态机
	if s.emitter != nil {
		s.emitter.TurnReceived(session.ExternalID, message, len(session.Messages))
	}

	// Analyzing：网关内部已兜底，永不中断本轮
	analysis := s.gateway.Analyze(ctx, message, history)

	// Replying：没有回复的助手轮没有价值，失败则整轮中止
	reply, err := s.gateway.Reply(ctx, message, analysis, history)
	if err != nil {
		return nil, s.abort(stateReplying, err)
	}

	// Persisting：两条消息作为一个单元落盘
	now := time.Now()
	userMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: session.InternalID,
		Seq:       len(session.Messages),
		Role:      model.RoleUser,
		Content:   message,
		CreatedAt: now,
	}

	metadata := &model.MessageMetadata{
		Analysis: analysis,
		Progress: &model.Progress{
			EmotionalState: analysis.EmotionalState,
			RiskLevel:      analysis.RiskLevel,
		},
	}
	assistantMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: session.InternalID,
		Seq:       len(session.Messages) + 1,
		Role:      model.RoleAssistant,
		Content:   reply,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	// 首轮结束后，占位标题替换为首条用户消息的截断前缀
	if len(session.Messages) == 0 && s.isPlaceholderTitle(session.Title) {
		session.Title = deriveTitle(message)
	}

	pctx, pcancel := s.storeCtx(ctx)
	defer pcancel()
	if err := s.repo.AppendTurn(pctx, session, userMsg, assistantMsg); err != nil {
		return nil, s.abort(statePersisting, err)
	}

	// Done
	return &TurnResult{
		Reply:    reply,
		Analysis: analysis,
		Metadata: metadata,
	}, nil
}

// abort 标记状态机中止的错误包装
func (s *Service) abort(state turnState, err error) error {
	return fmt.Errorf("turn aborted at %s: %w", state, err)
}

// buildContext 把既有消息转为模型上下文，只保留最近的一段窗口。
// 完整历史仍然落盘并可读，窗口只约束发给模型的 token 量。
func (s *Service) buildContext(session *model.ChatSession) []*schema.Message {
	messages := session.Messages
	if len(messages) > s.cfg.HistoryWindow {
		messages = messages[len(messages)-s.cfg.HistoryWindow:]
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		role := schema.User
		if msg.Role == model.RoleAssistant {
			role = schema.Assistant
		}
		history = append(history, &schema.Message{Role: role, Content: msg.Content})
	}
	return history
}

// isPlaceholderTitle 标题还没被用户或派生逻辑设置过
func (s *Service) isPlaceholderTitle(title string) bool {
	return title == "" || title == s.cfg.DefaultTitle
}

// deriveTitle 从首条用户消息派生标题：超过 50 个字符时截断加省略号
func deriveTitle(message string) string {
	r := []rune(message)
	if len(r) > titleMaxLen {
		return string(r[:titleMaxLen]) + "..."
	}
	return message
}
