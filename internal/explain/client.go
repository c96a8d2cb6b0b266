package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint
// (Groq in production). One request explains one issue; no context is
// carried between calls.
type ChatClient struct {
	Endpoint string
	APIKey   string
	Model    string
	client   *http.Client
}

// NewChatClient builds a client for the given endpoint and model.
func NewChatClient(endpoint, apiKey, model string, timeout time.Duration) *ChatClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		APIKey:   apiKey,
		Model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

const explainPrompt = `You are a website mentor for beginners.
Explain the single audit finding below in plain English.

Rules:
- Describe ONLY this finding. Do not introduce any claim, number, URL, or detail that is not in the finding itself.
- Respond with valid JSON only, no text before or after it.

FINDING:
category: %s
title: %s
details: %s

RESPONSE FORMAT:
{"impact": "one sentence on why this matters to the site owner", "fix": "one short imperative instruction to fix it"}`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type explanation struct {
	Impact string `json:"impact"`
	Fix    string `json:"fix"`
}

// Explain requests an impact sentence and a fix instruction for one
// issue. The payload carries only the issue's public fields.
func (c *ChatClient) Explain(ctx context.Context, issue analyzer.Issue) (string, string, error) {
	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: fmt.Sprintf(explainPrompt, issue.Category, issue.Title, issue.Details),
		}},
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("call completion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", "", fmt.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", "", fmt.Errorf("completion response has no choices")
	}

	var exp explanation
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &exp); err != nil {
		return "", "", fmt.Errorf("decode explanation payload: %w", err)
	}
	if exp.Impact == "" || exp.Fix == "" {
		return "", "", fmt.Errorf("explanation payload incomplete")
	}
	return exp.Impact, exp.Fix, nil
}
