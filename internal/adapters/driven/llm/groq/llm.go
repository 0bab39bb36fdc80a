// Package groq provides a completion service adapter for the Groq API.
// The API is OpenAI-compatible; the key travels per request because calls
// are spread across a pool of credentials.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driven"
)

// Ensure CompletionService implements the interface.
var _ driven.CompletionService = (*CompletionService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"
	DefaultTimeout = 60 * time.Second

	// pingMaxTokens keeps health probes nearly free.
	pingMaxTokens = 5
)

// Config holds configuration for the Groq completion service.
type Config struct {
	// BaseURL is the API base URL (default: https://api.groq.com/openai/v1).
	BaseURL string

	// Model is the chat model to use (default: llama3-8b-8192).
	Model string

	// Timeout is the request timeout (default: 60s). An unresponsive call
	// is reported as a failure against the credential, never a hang.
	Timeout time.Duration
}

// CompletionService calls the Groq chat completions endpoint.
type CompletionService struct {
	client  *http.Client
	baseURL string
	model   string
}

// chatCompletionRequest is the chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewCompletionService creates a Groq completion service.
func NewCompletionService(cfg Config) *CompletionService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CompletionService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Complete generates an answer for the request.
func (s *CompletionService) Complete(ctx context.Context, req driven.CompletionRequest) (string, error) {
	messages := []chatCompletionMsg{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: req.UserPrompt},
	}
	return s.chatCompletion(ctx, req.APIKey, chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
}

// Ping validates one API key with a minimal one-token completion. This is
// the cheapest request that actually exercises the key's inference quota.
func (s *CompletionService) Ping(ctx context.Context, apiKey string) error {
	_, err := s.chatCompletion(ctx, apiKey, chatCompletionRequest{
		Model:     s.model,
		Messages:  []chatCompletionMsg{{Role: "user", Content: "Hello"}},
		MaxTokens: pingMaxTokens,
	})
	return err
}

func (s *CompletionService) chatCompletion(ctx context.Context, apiKey string, reqBody chatCompletionRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", classifyAPIError(resp.StatusCode, chatResp.Error.Code, chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp.StatusCode, "", string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("groq: no response choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// classifyAPIError maps provider rejections onto domain errors so the pool
// can tell a permanently dead key from a transient failure.
func classifyAPIError(status int, code, message string) error {
	lower := strings.ToLower(code + " " + message)
	switch {
	case strings.Contains(lower, "organization_restricted") || strings.Contains(lower, "restricted"):
		return fmt.Errorf("groq error (status %d): %s: %w", status, message, domain.ErrCredentialBlocked)
	case status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit"):
		return fmt.Errorf("groq error (status %d): %s: %w", status, message, domain.ErrRateLimited)
	default:
		return fmt.Errorf("groq error (status %d): %s", status, message)
	}
}

// ModelName returns the name of the model being used.
func (s *CompletionService) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *CompletionService) Close() error {
	return nil
}
