// Package vectorstore is a pure HTTP client performing one similarity search
// against one named Qdrant-style collection. It applies no fusion; that is
// the Retrieval Engine's job. Grounded on the teacher's internal/vectordb
// package for the responsibility split, but hand-rolled over plain net/http
// because the wire contract here (collections/{name}/points/search) is a
// literal REST shape the teacher's gRPC client cannot produce.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jamaly87/code-compass/internal/metrics"
	"github.com/jamaly87/code-compass/internal/model"
)

// Client performs similarity search calls against a single vector store base
// URL, optionally honoring a process-wide mock payload for offline tests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	mock       *mockData
}

// New builds a Client with the given per-call timeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithMock attaches a process-wide mock payload (spec.md §6's
// MCP_QDRANT_MOCK_RESPONSE), which the client filters client-side instead of
// issuing HTTP calls. Pass an empty string to disable mocking.
func (c *Client) WithMock(jsonLiteral string) error {
	if jsonLiteral == "" {
		c.mock = nil
		return nil
	}
	m, err := parseMock(jsonLiteral)
	if err != nil {
		return fmt.Errorf("parse mock vector store payload: %w", err)
	}
	c.mock = m
	return nil
}

// Request is the validated input to one collection search call.
type Request struct {
	Collection  string
	Vector      []float64
	TopK        int
	PathPrefix  string
	Repos       []string
	ContentType model.ContentType
}

// Result is the outcome of one Search call, always populated whether it
// succeeded or failed, per the Vector Store Client's component design.
type Result struct {
	Hits      []model.Hit
	LatencyMS int64
	Status    model.CollectionStatus
}

// Search performs one similarity search. It never returns a Go error for
// store-side failures: those are reported via Result.Status so the caller
// (the Retrieval Engine) can continue fanning out to the sibling collection.
func (c *Client) Search(ctx context.Context, req Request) Result {
	start := time.Now()

	var hits []model.Hit
	var err error
	if c.mock != nil {
		hits, err = c.searchMock(req)
	} else {
		hits, err = c.searchHTTP(ctx, req)
	}

	elapsed := time.Since(start)
	metrics.ObserveVectorStoreLatency(elapsed)
	latency := elapsed.Milliseconds()
	if err != nil {
		return Result{LatencyMS: latency, Status: model.StatusUnavailable}
	}
	return Result{Hits: hits, LatencyMS: latency, Status: model.StatusOK}
}

type searchBody struct {
	Vector      []float64  `json:"vector"`
	Limit       int        `json:"limit"`
	WithPayload bool       `json:"with_payload"`
	WithVector  bool       `json:"with_vector"`
	Filter      filterBody `json:"filter"`
}

type filterBody struct {
	Must []any `json:"must"`
}

type matchBody struct {
	Key   string    `json:"key"`
	Match matchTerm `json:"match"`
}

type matchTerm struct {
	Value string   `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type textMatchTerm struct {
	Text string `json:"text"`
}

type pathPrefixFilter struct {
	Key   string        `json:"key"`
	Match textMatchTerm `json:"match"`
}

// buildFilter renders the conjunction of sub-filters described by
// spec.md §4.2: path-prefix substring match, repo equality/disjunction, and
// required content-type equality.
func buildFilter(req Request) filterBody {
	var must []any
	if req.PathPrefix != "" {
		must = append(must, pathPrefixFilter{Key: "path", Match: textMatchTerm{Text: req.PathPrefix}})
	}
	switch len(req.Repos) {
	case 0:
	case 1:
		must = append(must, matchBody{Key: "repo", Match: matchTerm{Value: req.Repos[0]}})
	default:
		must = append(must, matchBody{Key: "repo", Match: matchTerm{Any: req.Repos}})
	}
	must = append(must, matchBody{Key: "content_type", Match: matchTerm{Value: string(req.ContentType)}})
	return filterBody{Must: must}
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (c *Client) searchHTTP(ctx context.Context, req Request) ([]model.Hit, error) {
	body := searchBody{
		Vector:      req.Vector,
		Limit:       req.TopK,
		WithPayload: true,
		WithVector:  false,
		Filter:      buildFilter(req),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, req.Collection)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]model.Hit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		hits = append(hits, model.Hit{Score: r.Score, Payload: r.Payload})
	}
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}
