package service

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/mindsage/internal/config"
	"github.com/ashwinyue/mindsage/internal/repository"
	"github.com/ashwinyue/mindsage/internal/service/chat"
	"github.com/ashwinyue/mindsage/internal/service/event"
	"github.com/ashwinyue/mindsage/internal/service/llm"
)

// Services 服务集合
type Services struct {
	Chat    *chat.Service
	Gateway *llm.Gateway
	Emitter *event.Emitter
}

// NewServices 创建所有服务
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway := llm.NewGateway(
		chatModel,
		time.Duration(cfg.Therapy.AnalysisTimeout)*time.Second,
		time.Duration(cfg.Therapy.ReplyTimeout)*time.Second,
	)

	// 遥测存储不可用时降级为空操作，不阻塞启动
	var store event.Store
	if redisClient != nil {
		store = event.NewRedisStore(redisClient)
	} else {
		log.Println("Warning: redis unavailable, telemetry events disabled")
	}
	emitter := event.NewEmitter(store)

	chatSvc := chat.NewService(repos.Chat, gateway, emitter, cfg.Therapy)

	return &Services{
		Chat:    chatSvc,
		Gateway: gateway,
		Emitter: emitter,
	}, nil
}
