package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"chessalive/internal/config"
)

var (
	// ErrNotConfigured means no provider credentials are available. Callers
	// are expected to fall back to canned output.
	ErrNotConfigured = errors.New("llm not configured")
	ErrAPIFailure    = errors.New("llm request failed")
)

// Request is one chat completion. Zero Temperature/MaxTokens fall back to the
// configured defaults.
type Request struct {
	Prompt      string
	System      string
	Model       string
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client speaks the OpenAI chat-completions dialect over fasthttp. It works
// against OpenRouter and a local Ollama without code changes.
type Client struct {
	cfg    config.LLMConfig
	http   *fasthttp.Client
	stream *fasthttp.Client

	timeout  time.Duration
	retryMax int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry raises the attempt count above the single-shot default, with
// exponential backoff between attempts on transport errors and retryable
// statuses.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(cfg config.LLMConfig, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// Local Ollama inference can be slow; give it headroom.
	if cfg.Provider == config.ProviderOllama {
		timeout = 120 * time.Second
	}
	c := &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			ReadTimeout:     timeout,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 16,
		},
		stream: &fasthttp.Client{
			ReadTimeout:        timeout,
			WriteTimeout:       10 * time.Second,
			MaxConnsPerHost:    4,
			StreamResponseBody: true,
		},
		timeout:  timeout,
		retryMax: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the client can reach a provider at all. Ollama
// needs no key; OpenRouter does.
func (c *Client) Available() bool {
	if c.cfg.Provider == config.ProviderOllama {
		return true
	}
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *Client) Model() string { return c.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) buildPayload(req Request, stream bool) chatPayload {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}
	var messages []chatMessage
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	return chatPayload{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}

func (c *Client) prepareRequest(req *fasthttp.Request, payload chatPayload) error {
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions")
	req.Header.SetContentType("application/json")
	if c.cfg.Provider != config.ProviderOllama {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("HTTP-Referer", "https://github.com/chess-alive")
		req.Header.Set("X-Title", "ChessAlive")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req.SetBody(body)
	return nil
}

// Complete returns the completion text for a prompt.
func (c *Client) Complete(ctx context.Context, r Request) (string, error) {
	resp, err := c.CompleteFull(ctx, r)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteFull returns the completion with usage metadata.
func (c *Client) CompleteFull(ctx context.Context, r Request) (Response, error) {
	if !c.Available() {
		return Response{}, ErrNotConfigured
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	if err := c.prepareRequest(req, c.buildPayload(r, false)); err != nil {
		return Response{}, err
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrAPIFailure, err)
			if attempt == attempts {
				return Response{}, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return Response{}, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("%w: status=%d %s", ErrAPIFailure, status, apiErrorMessage(resp.Body()))
			if attempt == attempts || !shouldRetryStatus(status) {
				return Response{}, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return Response{}, lastErr
			}
			continue
		}

		var parsed chatResponse
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
			return Response{}, fmt.Errorf("%w: decode response: %v", ErrAPIFailure, err)
		}
		if len(parsed.Choices) == 0 {
			return Response{}, fmt.Errorf("%w: response has no choices", ErrAPIFailure)
		}
		return Response{
			Content:          parsed.Choices[0].Message.Content,
			Model:            parsed.Model,
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}, nil
	}
	return Response{}, lastErr
}

// CompleteStream consumes a server-sent-event stream, invoking fn for each
// content delta, and returns the accumulated text. The stream ends at the
// [DONE] sentinel.
func (c *Client) CompleteStream(ctx context.Context, r Request, fn func(chunk string)) (string, error) {
	if !c.Available() {
		return "", ErrNotConfigured
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)

	if err := c.prepareRequest(req, c.buildPayload(r, true)); err != nil {
		fasthttp.ReleaseResponse(resp)
		return "", err
	}

	if err := c.stream.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		fasthttp.ReleaseResponse(resp)
		return "", fmt.Errorf("%w: %v", ErrAPIFailure, err)
	}
	defer func() {
		_ = resp.CloseBodyStream()
		fasthttp.ReleaseResponse(resp)
	}()

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: status=%d", ErrAPIFailure, status)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.BodyStream())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}
		content, done, ok := ParseSSELine(scanner.Text())
		if done {
			break
		}
		if !ok || content == "" {
			continue
		}
		full.WriteString(content)
		if fn != nil {
			fn(content)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("%w: read stream: %v", ErrAPIFailure, err)
	}
	return full.String(), nil
}

// ParseSSELine extracts the content delta from one "data:" line. done is true
// at the [DONE] sentinel; ok is false for comments, blank lines and chunks
// without content.
func ParseSSELine(line string) (content string, done bool, ok bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "[DONE]" {
		return "", true, false
	}
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false, false
	}
	if len(chunk.Choices) == 0 {
		return "", false, false
	}
	return chunk.Choices[0].Delta.Content, false, true
}

func apiErrorMessage(body []byte) string {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return truncate(parsed.Error.Message, 256)
	}
	return truncate(string(body), 256)
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
