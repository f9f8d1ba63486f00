package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/mindsage/internal/handler"
	"github.com/ashwinyue/mindsage/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.AuthMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Chat 治疗会话
		sessions := v1.Group("/chat/sessions")
		{
			sessions.POST("", h.Chat.CreateSession)
			sessions.GET("", h.Chat.ListSessions)
			sessions.GET("/:ref", h.Chat.GetSession)
			sessions.GET("/:ref/history", h.Chat.GetHistory)
			sessions.GET("/:ref/events", h.Chat.GetEvents)
			sessions.POST("/:ref/messages", h.Chat.SendMessage)
		}
	}

	return r
}
