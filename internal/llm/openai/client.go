package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/shared/metrics"
	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/shared/util"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds each call; exceeding it is a transient failure.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements llm.Client using the Chat Completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient constructs a Chat Completions client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    normalizeBaseURL(opts.BaseURL),
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *usage    `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt, params llm.Params) (string, error) {
	start := time.Now()
	content, u, err := c.complete(ctx, prompt, params)
	latency := time.Since(start)

	total := 0
	if u != nil {
		total = u.TotalTokens
	}
	metrics.ObserveModelCall(llm.Outcome(err), latency, total)
	fields := map[string]any{
		"model":       c.model,
		"prompt_hash": hashPrompt(prompt),
		"latency_ms":  latency.Milliseconds(),
		"outcome":     llm.Outcome(err),
	}
	if u != nil {
		fields["prompt_tokens"] = u.PromptTokens
		fields["completion_tokens"] = u.CompletionTokens
		fields["total_tokens"] = u.TotalTokens
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("llm.call", fields)
		return "", err
	}
	telemetry.Info("llm.call", fields)
	return content, nil
}

func (c *Client) complete(ctx context.Context, prompt llm.Prompt, params llm.Params) (string, *usage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(prompt.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.User})

	temp := params.Temperature
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   params.MaxTokens,
	}
	if params.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, classifyTransport(err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		return "", nil, classifyStatus(resp.StatusCode, parsed.Error, body)
	}
	if parseErr != nil {
		return "", nil, &llm.MalformedResponseError{Reason: "response body is not JSON: " + parseErr.Error(), Raw: truncate(string(body), 512)}
	}
	if parsed.Error != nil {
		return "", parsed.Usage, classifyStatus(http.StatusOK, parsed.Error, body)
	}
	if len(parsed.Choices) == 0 {
		return "", parsed.Usage, &llm.MalformedResponseError{Reason: "response missing choices"}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", parsed.Usage, &llm.MalformedResponseError{Reason: "response empty content"}
	}
	return content, parsed.Usage, nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.TransientError{Op: "chat", Err: fmt.Errorf("openai request timeout: %w", err)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &llm.TransientError{Op: "chat", Err: err}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof") {
		return &llm.TransientError{Op: "chat", Err: err}
	}
	return err
}

func classifyStatus(status int, apiErr *apiError, body []byte) error {
	msg := truncate(strings.TrimSpace(string(body)), 256)
	if apiErr != nil {
		msg = apiErr.Message
		if apiErr.Code == "insufficient_quota" || apiErr.Type == "insufficient_quota" {
			return &llm.QuotaError{Message: msg}
		}
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &llm.QuotaError{Message: msg}
	case status == http.StatusRequestTimeout || status >= 500:
		return &llm.TransientError{Op: "chat", Err: fmt.Errorf("openai http status %d: %s", status, msg)}
	default:
		return fmt.Errorf("openai http status %d: %s", status, msg)
	}
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return defaultBaseURL
	}
	return raw
}

func hashPrompt(p llm.Prompt) string {
	sum := sha256.Sum256([]byte("system: " + p.System + "\n\nuser: " + p.User))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	return util.TruncateBytes(s, n)
}

var _ llm.Client = (*Client)(nil)
