// Package embeddings is a plain net/http client for the embedding service
// (spec.md §6). Grounded directly in the teacher's internal/embeddings
// client, which already builds its requests over net/http with a tuned
// transport and explicit deadlines; this client narrows that pattern to the
// exact wire shape spec.md fixes.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/jamaly87/code-compass/internal/metrics"
	"github.com/jamaly87/code-compass/internal/model"
)

// Client calls one embedding service base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client with the given per-call timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed calls POST {base}/api/embed for a single query string and returns
// its embedding. A request/transport failure, a non-2xx status, or a body
// that is not JSON is classified EMBEDDING_FAILED; a response whose
// embeddings field has the wrong JSON types, holds zero or more than one
// embedding, or contains any non-finite value, is classified
// EMBEDDING_INVALID.
func (c *Client) Embed(ctx context.Context, modelName, query string) ([]float64, error) {
	start := time.Now()
	defer func() { metrics.ObserveEmbeddingLatency(time.Since(start)) }()

	body, err := json.Marshal(embedRequest{Model: modelName, Input: []string{query}})
	if err != nil {
		return nil, model.Wrap(model.CodeEmbeddingFailed, "marshal embed request", err)
	}

	url := c.baseURL + "/api/embed"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, model.Wrap(model.CodeEmbeddingFailed, "build embed request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.Wrap(model.CodeEmbeddingFailed, "call embedding service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewError(model.CodeEmbeddingFailed, fmt.Sprintf("embedding service returned status %d", resp.StatusCode))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, model.Wrap(model.CodeEmbeddingInvalid, "embedding response has an invalid shape", err)
		}
		return nil, model.Wrap(model.CodeEmbeddingFailed, "decode embed response", err)
	}

	if len(parsed.Embeddings) != 1 {
		return nil, model.NewError(model.CodeEmbeddingInvalid, fmt.Sprintf("expected exactly one embedding, got %d", len(parsed.Embeddings)))
	}
	vec := parsed.Embeddings[0]
	if len(vec) == 0 {
		return nil, model.NewError(model.CodeEmbeddingInvalid, "embedding is empty")
	}
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, model.NewError(model.CodeEmbeddingInvalid, "embedding contains a non-finite value")
		}
	}
	return vec, nil
}
