package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/KunalSewal/RAG-Chatbot/internal/domain"
)

// chatResponse mirrors the OpenAI-compatible chat completion response.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func newChatResponse(content string) chatResponse {
	resp := chatResponse{ID: "chatcmpl-1", Object: "chat.completion", Model: "test-model"}
	resp.Choices = append(resp.Choices, struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}{
		FinishReason: "stop",
	})
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = content
	return resp
}

func TestCompleter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, expected test-model", req.Model)
		}
		if req.MaxTokens != 256 {
			t.Errorf("max_tokens = %d, expected 256", req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(newChatResponse("The answer is 42."))
	}))
	defer server.Close()

	comp := NewCompleter(&CompleterConfig{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Temperature: 0.7,
		MaxTokens:   256,
		Logger:      zap.NewNop(),
	})

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "You are helpful."},
		{Role: domain.RoleUser, Content: "What is the answer?"},
	}

	result, err := comp.Complete(context.Background(), "test-model", msgs)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.Content != "The answer is 42." {
		t.Errorf("content = %q", result.Content)
	}
	if result.Model != "test-model" {
		t.Errorf("model = %q, expected test-model", result.Model)
	}
}

func TestCompleter_APIErrorMapsToCompletionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "model overloaded",
				"type":    "server_error",
			},
		})
	}))
	defer server.Close()

	comp := NewCompleter(&CompleterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	_, err := comp.Complete(context.Background(), "test-model", []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
	})
	if !errors.Is(err, domain.ErrCompletionFailed) {
		t.Fatalf("error = %v, want ErrCompletionFailed", err)
	}
}

func writeStreamChunk(w http.ResponseWriter, content string) {
	chunk := map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion.chunk",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"delta": map[string]any{"content": content},
			},
		},
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func TestCompleter_CompleteStream(t *testing.T) {
	fragments := []string{"The ", "answer ", "is ", "42."}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			writeStreamChunk(w, f)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	comp := NewCompleter(&CompleterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	var received []string
	result, err := comp.CompleteStream(context.Background(), "test-model",
		[]domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		func(fragment string) error {
			received = append(received, fragment)
			return nil
		})
	if err != nil {
		t.Fatalf("CompleteStream failed: %v", err)
	}

	if len(received) != len(fragments) {
		t.Fatalf("received %d fragments, expected %d", len(received), len(fragments))
	}
	for i, f := range fragments {
		if received[i] != f {
			t.Errorf("fragment[%d] = %q, expected %q", i, received[i], f)
		}
	}
	if result.Content != strings.Join(fragments, "") {
		t.Errorf("accumulated content = %q", result.Content)
	}
	if result.Model != "test-model" {
		t.Errorf("model = %q, expected test-model", result.Model)
	}
}

func TestCompleter_CompleteStreamCallbackErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeStreamChunk(w, "first")
		writeStreamChunk(w, "second")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	comp := NewCompleter(&CompleterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	callbackErr := errors.New("client went away")
	calls := 0
	_, err := comp.CompleteStream(context.Background(), "test-model",
		[]domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		func(string) error {
			calls++
			return callbackErr
		})
	if !errors.Is(err, callbackErr) {
		t.Fatalf("error = %v, want callback error", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, expected 1", calls)
	}
}

func TestCompleter_CompleteStreamRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key", "type": "auth_error"},
		})
	}))
	defer server.Close()

	comp := NewCompleter(&CompleterConfig{
		APIKey:  "bad-key",
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	_, err := comp.CompleteStream(context.Background(), "test-model",
		[]domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		func(string) error { return nil })
	if !errors.Is(err, domain.ErrCompletionFailed) {
		t.Fatalf("error = %v, want ErrCompletionFailed", err)
	}
}

func TestCompleter_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	comp := NewCompleter(&CompleterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Logger:  zap.NewNop(),
	})

	if err := comp.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}
