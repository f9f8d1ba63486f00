package chat

import (
	"testing"
	"time"

	"github.com/ashwinyue/mindsage/internal/model"
)

func TestNormalizeContentFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want string
	}{
		{name: "content preferred", raw: map[string]interface{}{"content": "a", "text": "b", "message": "c"}, want: "a"},
		{name: "text fallback", raw: map[string]interface{}{"text": "b", "message": "c"}, want: "b"},
		{name: "message fallback", raw: map[string]interface{}{"message": "c"}, want: "c"},
		{name: "empty content skipped", raw: map[string]interface{}{"content": "", "text": "b"}, want: "b"},
		{name: "non-string content skipped", raw: map[string]interface{}{"content": 42, "text": "b"}, want: "b"},
		{name: "nothing usable", raw: map[string]interface{}{"other": "x"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeRecord(tt.raw, 0); got.Content != tt.want {
				t.Errorf("Content = %q, want %q", got.Content, tt.want)
			}
		})
	}
}

func TestNormalizeRoleFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]interface{}
		index int
		want  string
	}{
		{name: "role preferred", raw: map[string]interface{}{"role": "assistant", "sender": "user"}, index: 0, want: model.RoleAssistant},
		{name: "sender user", raw: map[string]interface{}{"sender": "user"}, index: 1, want: model.RoleUser},
		{name: "sender other maps to assistant", raw: map[string]interface{}{"sender": "bot"}, index: 0, want: model.RoleAssistant},
		{name: "even index defaults to user", raw: map[string]interface{}{}, index: 2, want: model.RoleUser},
		{name: "odd index defaults to assistant", raw: map[string]interface{}{}, index: 3, want: model.RoleAssistant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeRecord(tt.raw, tt.index); got.Role != tt.want {
				t.Errorf("Role = %q, want %q", got.Role, tt.want)
			}
		})
	}
}

func TestNormalizeTimestampFallbacks(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

	t.Run("timestamp as time.Time", func(t *testing.T) {
		got := normalizeRecord(map[string]interface{}{"timestamp": ts}, 0)
		if !got.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
		}
	})

	t.Run("createdAt as RFC3339 string", func(t *testing.T) {
		got := normalizeRecord(map[string]interface{}{"createdAt": "2025-03-01T10:30:00Z"}, 0)
		if !got.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
		}
	})

	t.Run("missing timestamp defaults to now", func(t *testing.T) {
		before := time.Now()
		got := normalizeRecord(map[string]interface{}{}, 0)
		if got.Timestamp.Before(before) || got.Timestamp.After(time.Now()) {
			t.Errorf("Timestamp = %v, want current time", got.Timestamp)
		}
	})

	t.Run("unparseable string defaults to now", func(t *testing.T) {
		before := time.Now()
		got := normalizeRecord(map[string]interface{}{"timestamp": "yesterday"}, 0)
		if got.Timestamp.Before(before) {
			t.Errorf("Timestamp = %v, want current time", got.Timestamp)
		}
	})
}

func TestNormalizeMetadata(t *testing.T) {
	t.Run("metadata object carried over", func(t *testing.T) {
		raw := map[string]interface{}{
			"content": "hi",
			"metadata": map[string]interface{}{
				"analysis":  map[string]interface{}{"emotionalState": "calm", "riskLevel": 1},
				"technique": "CBT",
			},
		}
		got := normalizeRecord(raw, 0)
		if got.Metadata == nil || got.Metadata.Analysis == nil {
			t.Fatal("expected metadata with analysis")
		}
		if got.Metadata.Analysis.EmotionalState != "calm" {
			t.Errorf("EmotionalState = %q, want calm", got.Metadata.Analysis.EmotionalState)
		}
		if got.Metadata.Technique != "CBT" {
			t.Errorf("Technique = %q, want CBT", got.Metadata.Technique)
		}
	})

	t.Run("bare analysis wrapped", func(t *testing.T) {
		raw := map[string]interface{}{
			"content":  "hi",
			"analysis": map[string]interface{}{"emotionalState": "sad"},
		}
		got := normalizeRecord(raw, 0)
		if got.Metadata == nil || got.Metadata.Analysis == nil {
			t.Fatal("expected bare analysis to be wrapped in metadata")
		}
		if got.Metadata.Analysis.EmotionalState != "sad" {
			t.Errorf("EmotionalState = %q, want sad", got.Metadata.Analysis.EmotionalState)
		}
	})

	t.Run("no metadata yields nil", func(t *testing.T) {
		if got := normalizeRecord(map[string]interface{}{"content": "hi"}, 0); got.Metadata != nil {
			t.Errorf("Metadata = %+v, want nil", got.Metadata)
		}
	})
}

func TestNormalizeStored(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("complete message passes through", func(t *testing.T) {
		msg := &model.ChatMessage{Role: model.RoleAssistant, Content: "hello", CreatedAt: ts}
		got := NormalizeStored(msg, 0)
		if got.Role != model.RoleAssistant || got.Content != "hello" || !got.Timestamp.Equal(ts) {
			t.Errorf("NormalizeStored() = %+v", got)
		}
	})

	t.Run("missing role uses position", func(t *testing.T) {
		msg := &model.ChatMessage{Content: "x", CreatedAt: ts}
		if got := NormalizeStored(msg, 1); got.Role != model.RoleAssistant {
			t.Errorf("Role = %q, want assistant", got.Role)
		}
	})

	t.Run("zero time replaced", func(t *testing.T) {
		msg := &model.ChatMessage{Role: model.RoleUser, Content: "x"}
		if got := NormalizeStored(msg, 0); got.Timestamp.IsZero() {
			t.Error("zero timestamp should be replaced with current time")
		}
	})
}
