// Package chat is a plain net/http client for the chat/completion service
// (spec.md §6), following the same hand-rolled net/http pattern as
// internal/embeddings and internal/vectorstore.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jamaly87/code-compass/internal/metrics"
	"github.com/jamaly87/code-compass/internal/model"
)

// Client calls one chat service base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client with the given per-call timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Complete calls POST {base}/api/chat with a system and user message and
// returns the trimmed response content. Any transport, non-2xx, or decode
// failure is classified CHAT_FAILED.
func (c *Client) Complete(ctx context.Context, modelName, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveChatLatency(time.Since(start)) }()

	body, err := json.Marshal(chatRequest{
		Model: modelName,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	})
	if err != nil {
		return "", model.Wrap(model.CodeChatFailed, "marshal chat request", err)
	}

	url := c.baseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", model.Wrap(model.CodeChatFailed, "build chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", model.Wrap(model.CodeChatFailed, "call chat service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", model.NewError(model.CodeChatFailed, fmt.Sprintf("chat service returned status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", model.Wrap(model.CodeChatFailed, "decode chat response", err)
	}

	return strings.TrimSpace(parsed.Message.Content), nil
}
