// Package llm 封装对外部语言模型的两类调用：
// 结构化分析和自由文本回复，基于 eino ChatModel。
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/mindsage/internal/model"
)

// ErrEmptyReply 模型返回了空回复
var ErrEmptyReply = errors.New("empty reply from model")

const systemPrompt = `You are an AI therapist assistant. Your role is to:
1. Provide empathetic and supportive responses
2. Use evidence-based therapeutic techniques
3. Maintain professional boundaries
4. Monitor for risk factors
5. Guide users toward their therapeutic goals`

const analysisPromptTemplate = `Analyze this therapy message and provide insights. Return ONLY a valid JSON object with no markdown formatting or additional text.
Message: %s

Required JSON structure:
{
  "emotionalState": "string",
  "themes": ["string"],
  "riskLevel": number,
  "recommendedApproach": "string",
  "progressIndicators": ["string"]
}`

const replyPromptTemplate = `Based on the following context, generate a therapeutic response:
Message: %s
Analysis: %s

Provide a response that:
1. Addresses the immediate emotional needs
2. Uses appropriate therapeutic techniques
3. Shows empathy and understanding
4. Maintains professional boundaries
5. Considers safety and well-being`

// Gateway 语言模型网关
type Gateway struct {
	chatModel       ecomodel.ChatModel
	analysisTimeout time.Duration
	replyTimeout    time.Duration
}

// NewGateway 创建语言模型网关
func NewGateway(chatModel ecomodel.ChatModel, analysisTimeout, replyTimeout time.Duration) *Gateway {
	if analysisTimeout <= 0 {
		analysisTimeout = 8 * time.Second
	}
	if replyTimeout <= 0 {
		replyTimeout = 15 * time.Second
	}
	return &Gateway{
		chatModel:       chatModel,
		analysisTimeout: analysisTimeout,
		replyTimeout:    replyTimeout,
	}
}

// DefaultAnalysis 分析失败时使用的中性默认值
func DefaultAnalysis() *model.Analysis {
	return &model.Analysis{
		EmotionalState:      "neutral",
		Themes:              []string{},
		RiskLevel:           0,
		RecommendedApproach: "general support",
		ProgressIndicators:  []string{},
	}
}

// Analyze 分析用户消息，输出结构化结果。
// 分析只是增强信号，任何失败（网络错误、非 JSON 输出）都回落到中性默认值，
// 从不让调用方的整轮对话失败。
func (g *Gateway) Analyze(ctx context.Context, message string, history []*schema.Message) *model.Analysis {
	if g.chatModel == nil {
		return DefaultAnalysis()
	}

	ctx, cancel := context.WithTimeout(ctx, g.analysisTimeout)
	defer cancel()

	prompt := fmt.Sprintf(analysisPromptTemplate, message)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{Role: schema.System, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, &schema.Message{Role: schema.User, Content: prompt})

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		log.Printf("Warning: analysis call failed, using default: %v", err)
		return DefaultAnalysis()
	}

	analysis, ok := parseAnalysis(resp.Content)
	if !ok {
		log.Printf("Warning: unparseable analysis output, using default: %.200s", resp.Content)
		return DefaultAnalysis()
	}
	return analysis
}

// Reply 生成治疗性回复。
// 与分析不同，回复是整轮对话的核心产出：模型失败或输出为空时直接报错。
func (g *Gateway) Reply(ctx context.Context, message string, analysis *model.Analysis, history []*schema.Message) (string, error) {
	if g.chatModel == nil {
		return "", errors.New("chat model not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.replyTimeout)
	defer cancel()

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}

	prompt := fmt.Sprintf(replyPromptTemplate, message, string(analysisJSON))

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{Role: schema.System, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, &schema.Message{Role: schema.User, Content: prompt})

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
