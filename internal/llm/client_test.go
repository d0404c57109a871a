package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/domain"
)

func TestNew_MissingKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := New(context.Background(), config.LLMConfig{Provider: "groq", APIKey: key})
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("New(key=%q) error = %v, want ErrNotConfigured", key, err)
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "acme", APIKey: "k"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported provider error, got %v", err)
	}
}

func TestNew_Groq(t *testing.T) {
	c, err := New(context.Background(), config.LLMConfig{Provider: "groq", APIKey: "k"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g, ok := c.(*GroqClient)
	if !ok {
		t.Fatalf("expected *GroqClient, got %T", c)
	}
	if g.model != DefaultGroqModel {
		t.Errorf("model = %q, want %q", g.model, DefaultGroqModel)
	}
}

func TestGroqClient_Complete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Halo!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewGroqClient(config.LLMConfig{APIKey: "test-key", BaseURL: srv.URL, Temperature: 0.3})
	text, err := client.Complete(context.Background(), "be brief", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hai"},
		{Role: domain.RoleAssistant, Content: "halo"},
		{Role: domain.RoleUser, Content: "apa kabar"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "Halo!" {
		t.Errorf("text = %q, want Halo!", text)
	}

	if len(got.Messages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "be brief" {
		t.Errorf("first message = %+v, want system prompt", got.Messages[0])
	}
	if got.Messages[2].Role != "assistant" {
		t.Errorf("role = %q, want assistant", got.Messages[2].Role)
	}
	if got.Model != DefaultGroqModel {
		t.Errorf("model = %q", got.Model)
	}
}

func TestGroqClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, "status 500"},
		{"rate limited", http.StatusTooManyRequests, `slow down`, "status 429"},
		{"bad json", http.StatusOK, `not json`, "parse response"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no completion choices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewGroqClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL})
			_, err := client.Complete(context.Background(), "", []domain.ChatMessage{{Role: domain.RoleUser, Content: "x"}})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestToGeminiContents(t *testing.T) {
	contents := toGeminiContents([]domain.ChatMessage{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
	})
	if len(contents) != 2 {
		t.Fatalf("len = %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
	if contents[1].Parts[0].Text != "b" {
		t.Errorf("text = %q", contents[1].Parts[0].Text)
	}
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(ctx context.Context, sp string, msgs []domain.ChatMessage) (string, error) {
		return sp + ":" + msgs[0].Content, nil
	})
	out, _ := c.Complete(context.Background(), "p", []domain.ChatMessage{{Role: domain.RoleUser, Content: "m"}})
	if out != "p:m" {
		t.Errorf("out = %q", out)
	}
}
