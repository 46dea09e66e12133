// Package search implements the Search Tool (spec.md §4.5): input
// validation, vector fallback enforcement, invocation of the Retrieval
// Engine, result shaping, and the per-scope "all" monopolization guard.
package search

import (
	"context"
	"math"
	"strings"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/retrieval"
)

const (
	defaultTopK = 10
	minTopK     = 1
	maxTopK     = 20

	minQueryLen = 1
	maxQueryLen = 500
)

// Tool runs one search_code call end to end.
type Tool struct {
	engine *retrieval.Engine
}

// New builds a Tool backed by the given Retrieval Engine.
func New(engine *retrieval.Engine) *Tool {
	return &Tool{engine: engine}
}

// Input is the validated search_code request.
type Input struct {
	Scope       model.Scope
	Query       string
	TopK        int
	PathPrefix  string
	Vector      []float64
	ContentType model.ContentType
	Strict      bool
}

// ScopeMeta is the echoed scope shape of spec.md §4.5: {type, repos}, with
// repos omitted for "all" and repo included only for a single-repo scope.
type ScopeMeta struct {
	Type  model.ScopeType
	Repos []string
	Repo  string
}

// Output is the search_code result.
type Output struct {
	Results         []model.Result
	Scope           ScopeMeta
	Collection      string
	CollectionsMeta []model.CollectionMeta
}

// Run validates the vector fallback requirement, invokes the Retrieval
// Engine, applies the per-scope "all" guard, and shapes the response.
func (t *Tool) Run(ctx context.Context, in Input) (*Output, error) {
	if err := validateVector(in.Vector); err != nil {
		return nil, err
	}
	query, err := validateQuery(in.Query)
	if err != nil {
		return nil, err
	}

	topK := clampTopK(in.TopK)

	resp, err := t.engine.Retrieve(ctx, model.RetrievalRequest{
		Scope:       in.Scope,
		Query:       query,
		TopK:        topK,
		PathPrefix:  in.PathPrefix,
		Vector:      in.Vector,
		ContentType: in.ContentType,
		Strict:      in.Strict,
	})
	if err != nil {
		return nil, err
	}

	hits := resp.Hits
	if in.Scope.Type == model.ScopeAll {
		hits = applyPerRepoGuard(hits, topK)
	}

	results := make([]model.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, model.ShapeResult(h))
	}

	return &Output{
		Results:         results,
		Scope:           shapeScope(in.Scope),
		Collection:      resp.Collection,
		CollectionsMeta: resp.CollectionsMeta,
	}, nil
}

// validateQuery enforces spec.md §3's Retrieval Request shape: the query is
// trimmed and must be 1..500 characters after trimming.
func validateQuery(q string) (string, error) {
	trimmed := strings.TrimSpace(q)
	n := len([]rune(trimmed))
	if n < minQueryLen || n > maxQueryLen {
		return "", model.NewError(model.CodeBadRequest, "query must be between 1 and 500 characters")
	}
	return trimmed, nil
}

// clampTopK enforces spec.md §3's Retrieval Request shape: topK clamped to
// 1..20, defaulting when unset.
func clampTopK(topK int) int {
	if topK == 0 {
		return defaultTopK
	}
	if topK < minTopK {
		return minTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

// validateVector enforces spec.md §4.5's current-design vector fallback
// requirement: the caller must supply a non-empty vector of finite numbers.
func validateVector(vector []float64) error {
	if len(vector) == 0 {
		return model.NewError(model.CodeBadRequest, "vector is required: embed the query and supply it explicitly")
	}
	for _, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.NewError(model.CodeBadRequest, "vector must contain only finite numbers")
		}
	}
	return nil
}

// applyPerRepoGuard admits at most 3 hits per repo, in rank order, stopping
// once topK is reached, per spec.md §4.5's "all" scope monopolization guard.
func applyPerRepoGuard(hits []model.Hit, topK int) []model.Hit {
	const perRepoLimit = 3
	counts := map[string]int{}
	out := make([]model.Hit, 0, len(hits))
	for _, h := range hits {
		if len(out) >= topK {
			break
		}
		repo := h.Repo()
		if counts[repo] >= perRepoLimit {
			continue
		}
		counts[repo]++
		out = append(out, h)
	}
	return out
}

func shapeScope(s model.Scope) ScopeMeta {
	m := ScopeMeta{Type: s.Type}
	if s.Type != model.ScopeAll {
		m.Repos = s.Repos
	}
	if repo, ok := s.SingleRepo(); ok {
		m.Repo = repo
	}
	return m
}
