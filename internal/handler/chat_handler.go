package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/mindsage/internal/middleware"
	"github.com/ashwinyue/mindsage/internal/service"
	"github.com/ashwinyue/mindsage/internal/service/chat"
)

// ChatHandler 会话处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建会话处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// respondError 将服务层错误分类映射为响应。
// 上游的原始错误体（包括基础设施故障吐出的 HTML 页面）不会原样转发，
// 一律转成结构化 JSON。
func respondError(c *gin.Context, ref string, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid session ID",
			"sessionId":  ref,
			"suggestion": "Create a new session first",
		})
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Message is required",
		})
	case errors.Is(err, chat.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"message":         "Session not found",
			"sessionId":       ref,
			"suggestedAction": "create_new_session",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error processing message",
			"error":   err.Error(),
		})
	}
}

// CreateSession 创建会话
func (h *ChatHandler) CreateSession(c *gin.Context) {
	// 请求体可以为空，标题可选
	var req chat.CreateSessionRequest
	_ = c.ShouldBindJSON(&req)

	session, err := h.svc.Chat.CreateSession(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error creating chat session",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Chat session created successfully",
		"sessionId": session.ExternalID,
		"id":        session.InternalID,
		"title":     session.Title,
		"createdAt": session.StartedAt,
	})
}

// ListSessions 列出调用方的会话摘要，上游失败时降级为空列表
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions := h.svc.Chat.ListSessions(c.Request.Context(), middleware.GetUserID(c))
	c.JSON(http.StatusOK, sessions)
}

// GetSession 按引用获取会话
func (h *ChatHandler) GetSession(c *gin.Context) {
	ref := c.Param("ref")

	session, messages, err := h.svc.Chat.GetSession(c.Request.Context(), ref)
	if err != nil {
		respondError(c, ref, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             session.InternalID,
		"sessionId":      session.ExternalID,
		"title":          session.Title,
		"status":         session.Status,
		"startedAt":      session.StartedAt,
		"lastActivityAt": session.LastActivityAt,
		"messages":       messages,
	})
}

// GetHistory 获取会话消息历史
func (h *ChatHandler) GetHistory(c *gin.Context) {
	ref := c.Param("ref")

	messages, err := h.svc.Chat.GetHistory(c.Request.Context(), ref)
	if err != nil {
		respondError(c, ref, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetEvents 查看会话的遥测事件，用于排查问题
func (h *ChatHandler) GetEvents(c *gin.Context) {
	events, err := h.svc.Emitter.Events(c.Request.Context(), c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error fetching events",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, events)
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SendMessage 处理一轮对话
func (h *ChatHandler) SendMessage(c *gin.Context) {
	ref := c.Param("ref")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Message is required",
		})
		return
	}

	result, err := h.svc.Chat.PostTurn(c.Request.Context(), ref, req.Message)
	if err != nil {
		respondError(c, ref, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response": result.Reply,
		"message":  result.Reply,
		"analysis": result.Analysis,
		"metadata": result.Metadata,
	})
}
