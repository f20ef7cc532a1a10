package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"chessalive/internal/config"
)

func TestParseSSELine(t *testing.T) {
	content, done, ok := ParseSSELine(`data: {"choices":[{"delta":{"content":"Hel"}}]}`)
	if !ok || done || content != "Hel" {
		t.Fatalf("content line parsed wrong: %q %v %v", content, done, ok)
	}

	_, done, _ = ParseSSELine("data: [DONE]")
	if !done {
		t.Fatalf("[DONE] sentinel not recognized")
	}

	if _, _, ok := ParseSSELine(": keep-alive comment"); ok {
		t.Fatalf("comment line treated as content")
	}
	if _, _, ok := ParseSSELine(""); ok {
		t.Fatalf("blank line treated as content")
	}
	if _, _, ok := ParseSSELine("data: {not json"); ok {
		t.Fatalf("malformed chunk treated as content")
	}
	if _, _, ok := ParseSSELine(`data: {"choices":[]}`); ok {
		t.Fatalf("chunk without choices treated as content")
	}
}

func TestAvailable(t *testing.T) {
	c := NewClient(config.LLMConfig{Provider: config.ProviderOpenRouter})
	if c.Available() {
		t.Fatalf("openrouter without key reported available")
	}
	c = NewClient(config.LLMConfig{Provider: config.ProviderOpenRouter, APIKey: "sk-test"})
	if !c.Available() {
		t.Fatalf("openrouter with key reported unavailable")
	}
	c = NewClient(config.LLMConfig{Provider: config.ProviderOllama})
	if !c.Available() {
		t.Fatalf("ollama reported unavailable")
	}
}

func countingServer(t *testing.T, hits *int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSingleAttemptByDefault(t *testing.T) {
	var hits int32
	srv := countingServer(t, &hits, http.StatusServiceUnavailable)

	c := NewClient(config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "sk-test",
		BaseURL:  srv.URL,
		Model:    "test/model",
	})
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatalf("503 response did not error")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("attempts = %d, want 1", n)
	}
}

func TestWithRetryRepeatsRetryableStatus(t *testing.T) {
	var hits int32
	srv := countingServer(t, &hits, http.StatusServiceUnavailable)

	c := NewClient(config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "sk-test",
		BaseURL:  srv.URL,
		Model:    "test/model",
	}, WithRetry(3))
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatalf("503 response did not error")
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("attempts = %d, want 3", n)
	}

	// Non-retryable statuses stay single-shot even with retries enabled.
	var badReq int32
	srv2 := countingServer(t, &badReq, http.StatusBadRequest)
	c = NewClient(config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "sk-test",
		BaseURL:  srv2.URL,
		Model:    "test/model",
	}, WithRetry(3))
	if _, err := c.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatalf("400 response did not error")
	}
	if n := atomic.LoadInt32(&badReq); n != 1 {
		t.Fatalf("attempts = %d, want 1", n)
	}
}

func TestCompleteStreamDeliversChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "sk-test",
		BaseURL:  srv.URL,
		Model:    "test/model",
	})
	var chunks []string
	full, err := c.CompleteStream(context.Background(), Request{Prompt: "hi"}, func(ch string) {
		chunks = append(chunks, ch)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if full != "Hello" {
		t.Fatalf("accumulated = %q, want Hello", full)
	}
	if len(chunks) != 2 || chunks[0] != "Hel" || chunks[1] != "lo" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestBuildPayloadDefaults(t *testing.T) {
	c := NewClient(config.LLMConfig{
		Provider:    config.ProviderOpenRouter,
		APIKey:      "sk-test",
		Model:       "test/model",
		Temperature: 0.7,
		MaxTokens:   300,
	})
	p := c.buildPayload(Request{Prompt: "hello"}, false)
	if p.Model != "test/model" || p.Temperature != 0.7 || p.MaxTokens != 300 {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if len(p.Messages) != 1 || p.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", p.Messages)
	}

	p = c.buildPayload(Request{Prompt: "hi", System: "be brief", Temperature: 0.9, MaxTokens: 50}, true)
	if p.Temperature != 0.9 || p.MaxTokens != 50 || !p.Stream {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if len(p.Messages) != 2 || p.Messages[0].Role != "system" {
		t.Fatalf("system message missing: %+v", p.Messages)
	}
}
