package chat

import (
	"encoding/json"
	"time"

	"github.com/ashwinyue/mindsage/internal/model"
)

// Message 规范化后的消息，对外返回的统一形态。
// 上游存储和模型侧的消息结构没有契约保证，读路径统一过这一层。
type Message struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  *model.MessageMetadata `json:"metadata,omitempty"`
}

// NormalizeStored 将存储层消息转为规范形态。
// 角色缺失时按位置奇偶回退（偶数为 user），时间缺失时取当前时间。
func NormalizeStored(msg *model.ChatMessage, index int) Message {
	out := Message{
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
		Metadata:  msg.Metadata,
	}
	if out.Role == "" {
		out.Role = positionalRole(index)
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	return out
}

// normalizeRecord 将任意来源的消息记录转为规范形态。
// 每个属性按优先级探测候选字段，任何输入都不会失败：
//
//	content:   content → text → message → ""
//	role:      role → sender 推断 → 位置奇偶
//	timestamp: timestamp → createdAt → 当前时间
//	metadata:  metadata → 裸 analysis 字段包一层
func normalizeRecord(raw map[string]interface{}, index int) Message {
	out := Message{
		Content:   probeString(raw, "content", "text", "message"),
		Role:      probeRole(raw, index),
		Timestamp: probeTime(raw, "timestamp", "createdAt"),
		Metadata:  probeMetadata(raw),
	}
	return out
}

func probeString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func probeRole(raw map[string]interface{}, index int) string {
	if role, ok := raw["role"].(string); ok && role != "" {
		return role
	}
	if sender, ok := raw["sender"].(string); ok && sender != "" {
		if sender == model.RoleUser {
			return model.RoleUser
		}
		return model.RoleAssistant
	}
	return positionalRole(index)
}

func positionalRole(index int) string {
	if index%2 == 0 {
		return model.RoleUser
	}
	return model.RoleAssistant
}

func probeTime(raw map[string]interface{}, keys ...string) time.Time {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case time.Time:
			return v
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return ts
			}
		}
	}
	return time.Now()
}

// probeMetadata 取 metadata 字段；没有时，裸露的 analysis 字段也接受
func probeMetadata(raw map[string]interface{}) *model.MessageMetadata {
	var src interface{}
	if v, ok := raw["metadata"]; ok && v != nil {
		src = v
	} else if v, ok := raw["analysis"]; ok && v != nil {
		src = map[string]interface{}{"analysis": v}
	} else {
		return nil
	}

	data, err := json.Marshal(src)
	if err != nil {
		return nil
	}
	var meta model.MessageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return &meta
}
