package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, handle func(req chatRequest) (int, any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		status, body := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestCompleter(url string) *Completer {
	return NewCompleter(&Config{APIKey: "test-key", BaseURL: url, Model: "gpt-4o", Logger: zap.NewNop()})
}

func TestCompleter_Complete(t *testing.T) {
	var got chatRequest
	server := chatServer(t, func(req chatRequest) (int, any) {
		got = req
		return http.StatusOK, map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "  체류기간 연장은 하이코리아에서 신청합니다.  "},
			}},
			"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120},
		}
	})

	c := newTestCompleter(server.URL)
	out, err := c.Complete(context.Background(), domain.Completion{
		System:      "너는 지금 외국인 근로자와 대화를 하는 친절한 상담원이야.",
		Prompt:      "사용자 질문: \"연장\"",
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Trimming belongs to the generation layer; the transport returns raw content.
	if out != "  체류기간 연장은 하이코리아에서 신청합니다.  " {
		t.Errorf("unexpected content: %q", out)
	}
	if got.Model != "gpt-4o" || got.MaxTokens != 500 || got.Temperature != 0.7 {
		t.Errorf("unexpected request params: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("expected system+user messages, got %+v", got.Messages)
	}
	if c.Model() != "gpt-4o" {
		t.Errorf("unexpected model: %s", c.Model())
	}
}

func TestCompleter_NoSystemPrompt(t *testing.T) {
	server := chatServer(t, func(req chatRequest) (int, any) {
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected only a user message, got %+v", req.Messages)
		}
		return http.StatusOK, map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "ok"}}},
		}
	})

	if _, err := newTestCompleter(server.URL).Complete(context.Background(), domain.Completion{Prompt: "q"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleter_NoChoices(t *testing.T) {
	server := chatServer(t, func(chatRequest) (int, any) {
		return http.StatusOK, map[string]any{"choices": []any{}}
	})

	_, err := newTestCompleter(server.URL).Complete(context.Background(), domain.Completion{Prompt: "q"})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestCompleter_APIError(t *testing.T) {
	server := chatServer(t, func(chatRequest) (int, any) {
		return http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"message": "upstream overloaded", "type": "server_error"},
		}
	})

	_, err := newTestCompleter(server.URL).Complete(context.Background(), domain.Completion{Prompt: "q"})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestCompleter_ContextCanceled(t *testing.T) {
	server := chatServer(t, func(chatRequest) (int, any) {
		return http.StatusOK, map[string]any{}
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCompleter(server.URL).Complete(ctx, domain.Completion{Prompt: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to stay visible, got %v", err)
	}
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
