package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/mindsage/internal/model"
)

var (
	// ErrNotFound 会话不存在
	ErrNotFound = errors.New("session not found")
	// ErrVersionConflict 会话被并发修改，拒绝写入
	ErrVersionConflict = errors.New("session version conflict")
)

// ChatRepository 会话数据访问。
// 所有方法都接收上下文：存储调用的超时和取消由调用方控制，
// 后端挂起时不会无限期阻塞。
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建会话仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession 创建会话
func (r *ChatRepository) CreateSession(ctx context.Context, session *model.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetSessionByInternalID 按内部 ID 获取会话（含消息，按追加顺序）
func (r *ChatRepository) GetSessionByInternalID(ctx context.Context, id string) (*model.ChatSession, error) {
	return r.getSession(ctx, "id = ?", id)
}

// GetSessionByExternalID 按外部 ID 获取会话（含消息，按追加顺序）
func (r *ChatRepository) GetSessionByExternalID(ctx context.Context, id string) (*model.ChatSession, error) {
	return r.getSession(ctx, "external_id = ?", id)
}

func (r *ChatRepository) getSession(ctx context.Context, query string, arg string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Where(query, arg).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessionsByOwner 列出某个所有者的会话，最新开始的在前
func (r *ChatRepository) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	err := r.db.WithContext(ctx).Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Where("owner_id = ?", ownerID).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// AppendTurn 以单个事务追加一轮对话（用户消息 + 助手消息）并更新会话元数据。
// 会话行带乐观版本检查：两轮并发写入同一会话时，后提交的一方失败，
// 不会出现只落了半轮消息的状态。
func (r *ChatRepository) AppendTurn(ctx context.Context, session *model.ChatSession, userMsg, assistantMsg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ChatSession{}).
			Where("id = ? AND version = ?", session.InternalID, session.Version).
			Updates(map[string]interface{}{
				"title":            session.Title,
				"version":          session.Version + 1,
				"last_activity_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(assistantMsg).Error
	})
}
