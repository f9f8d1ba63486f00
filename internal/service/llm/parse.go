package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/mindsage/internal/model"
)

// parseAnalysis 先严格解析，失败后逐步放宽：
// 去掉代码围栏等常见包装，再用 jsonrepair 强力修复。
func parseAnalysis(raw string) (*model.Analysis, bool) {
	s := sanitizeJSON(raw)
	if s == "" {
		return nil, false
	}

	var analysis model.Analysis
	if err := json.Unmarshal([]byte(s), &analysis); err == nil {
		normalizeAnalysis(&analysis)
		return &analysis, true
	}

	// 宽松修复后重试
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &analysis); err != nil {
		return nil, false
	}
	normalizeAnalysis(&analysis)
	return &analysis, true
}

// sanitizeJSON 移除常见的模型输出伪影
func sanitizeJSON(raw string) string {
	s := strings.TrimSpace(raw)

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if json.Valid([]byte(s)) {
		return s
	}

	// 截取最外层大括号之间的部分
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i >= 0 && j > i {
		return s[i : j+1]
	}
	return s
}

// normalizeAnalysis 保证切片字段非 nil，序列化时输出空数组而不是 null
func normalizeAnalysis(a *model.Analysis) {
	if a.Themes == nil {
		a.Themes = []string{}
	}
	if a.ProgressIndicators == nil {
		a.ProgressIndicators = []string{}
	}
	if a.EmotionalState == "" {
		a.EmotionalState = "neutral"
	}
}
