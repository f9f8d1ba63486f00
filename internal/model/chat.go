package model

import "time"

// 会话状态
const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession 治疗会话
// InternalID 是存储层主键（24 位十六进制），ExternalID 是面向调用方的
// 不透明标识（UUID 形态），创建时分配且不可变。
type ChatSession struct {
	InternalID     string        `gorm:"column:id;primaryKey;size:24" json:"id"`
	ExternalID     string        `gorm:"uniqueIndex;size:36" json:"sessionId"`
	OwnerID        string        `gorm:"index;size:64" json:"ownerId"`
	Title          string        `gorm:"size:255" json:"title"`
	Status         string        `gorm:"index;size:20;default:active" json:"status"`
	Version        int64         `gorm:"default:0" json:"-"`
	StartedAt      time.Time     `gorm:"autoCreateTime;index" json:"startedAt"`
	LastActivityAt time.Time     `gorm:"autoUpdateTime" json:"lastActivityAt"`
	Messages       []ChatMessage `gorm:"foreignKey:SessionID;references:InternalID" json:"messages,omitempty"`
}

// ChatMessage 会话消息，追加后不可变
type ChatMessage struct {
	ID        string           `gorm:"primaryKey;size:36" json:"-"`
	SessionID string           `gorm:"index;size:24" json:"-"`
	Seq       int              `gorm:"index" json:"-"`
	Role      string           `gorm:"size:20" json:"role"` // user, assistant
	Content   string           `gorm:"type:text" json:"content"`
	Metadata  *MessageMetadata `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"timestamp"`
}

// MessageMetadata 助手消息上的结构化分析结果
type MessageMetadata struct {
	Analysis  *Analysis `json:"analysis,omitempty"`
	Technique string    `json:"technique,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
}

// Analysis 单条用户消息的分析结果
// RiskLevel 的量纲由模型给出，原样保留，不做裁剪。
type Analysis struct {
	EmotionalState      string   `json:"emotionalState"`
	Themes              []string `json:"themes"`
	RiskLevel           float64  `json:"riskLevel"`
	RecommendedApproach string   `json:"recommendedApproach"`
	ProgressIndicators  []string `json:"progressIndicators"`
}

// Progress 情绪进展摘要
type Progress struct {
	EmotionalState string  `json:"emotionalState"`
	RiskLevel      float64 `json:"riskLevel"`
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
