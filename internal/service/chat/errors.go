package chat

import "errors"

var (
	// ErrInvalidReference 调用方给的会话引用在语法上不可用
	//（空串或 "undefined"/"null" 这类占位残留），不会触发任何查询
	ErrInvalidReference = errors.New("invalid session reference")

	// ErrSessionNotFound 引用格式合法但没有匹配的会话
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyMessage 用户消息为空
	ErrEmptyMessage = errors.New("message is required")
)
