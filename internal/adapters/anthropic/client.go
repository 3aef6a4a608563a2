// Package anthropic implements the LLM client port over the Anthropic
// messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-sonnet-4-20250514"
	defaultTimeout = 120 * time.Second

	apiVersion = "2023-06-01"

	maxErrorBodyQuoted = 300
)

// ClientOptions groups configuration for the Anthropic client.
type ClientOptions struct {
	APIKey     string       // Required
	Model      string       // Optional: model override
	BaseURL    string       // Optional: endpoint override
	HTTPClient *http.Client // Optional: transport override
}

// Client implements core.LLMClient. Safe for concurrent use.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient constructs a new Anthropic client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.HTTPClient,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete implements core.LLMClient.
func (c *Client) Complete(ctx context.Context, req core.LLMRequest) (string, error) {
	body := messagesRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, message{Role: m.Role, Content: m.Content})
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "encode llm request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(encoded))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "build llm request")
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperrors.Timeout("llm call timed out")
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "llm request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyQuoted))
		return "", apperrors.Analyzer(fmt.Sprintf(
			"llm API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "decode llm response")
	}

	var b strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", apperrors.Analyzer("llm returned no text content")
	}
	return b.String(), nil
}
