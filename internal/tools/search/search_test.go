package search

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/retrieval"
	"github.com/jamaly87/code-compass/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, mockJSON string) *retrieval.Engine {
	t.Helper()
	store := vectorstore.New("http://unused", "", time.Second)
	require.NoError(t, store.WithMock(mockJSON))
	return retrieval.New(store, "code_coll", "docs_coll", 60, 1)
}

func TestRunRejectsEmptyVector(t *testing.T) {
	tool := New(newEngine(t, `{"collections":{}}`))
	_, err := tool.Run(context.Background(), Input{Scope: model.Scope{Type: model.ScopeRepo, Repos: []string{"acme"}}})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeBadRequest, ce.Code)
}

func TestRunRejectsNonFiniteVector(t *testing.T) {
	tool := New(newEngine(t, `{"collections":{}}`))
	_, err := tool.Run(context.Background(), Input{
		Scope:  model.Scope{Type: model.ScopeRepo, Repos: []string{"acme"}},
		Vector: []float64{1, 2, math.NaN()},
	})
	require.Error(t, err)
}

func TestRunShapesScopeEchoForSingleRepo(t *testing.T) {
	tool := New(newEngine(t, `{
		"collections": {
			"code_coll": [{"score": 0.9, "payload": {"repo": "acme", "path": "a.go", "content_type": "code"}}]
		}
	}`))
	out, err := tool.Run(context.Background(), Input{
		Scope:       model.Scope{Type: model.ScopeRepo, Repos: []string{"acme"}},
		Query:       "bootstrap",
		Vector:      []float64{0.1},
		ContentType: model.ContentCode,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScopeRepo, out.Scope.Type)
	assert.Equal(t, "acme", out.Scope.Repo)
	assert.Equal(t, []string{"acme"}, out.Scope.Repos)
}

func TestRunOmitsReposForAllScope(t *testing.T) {
	tool := New(newEngine(t, `{
		"collections": {
			"code_coll": [
				{"score": 0.9, "payload": {"repo": "acme", "path": "a.go", "content_type": "code"}}
			]
		}
	}`))
	out, err := tool.Run(context.Background(), Input{
		Scope:       model.Scope{Type: model.ScopeAll},
		Query:       "bootstrap",
		Vector:      []float64{0.1},
		ContentType: model.ContentCode,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScopeAll, out.Scope.Type)
	assert.Nil(t, out.Scope.Repos)
	assert.Empty(t, out.Scope.Repo)
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	tool := New(newEngine(t, `{"collections":{}}`))
	_, err := tool.Run(context.Background(), Input{
		Scope:  model.Scope{Type: model.ScopeRepo, Repos: []string{"acme"}},
		Query:  "   ",
		Vector: []float64{0.1},
	})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeBadRequest, ce.Code)
}

func TestRunTrimsQuery(t *testing.T) {
	tool := New(newEngine(t, `{
		"collections": {
			"code_coll": [{"score": 0.9, "payload": {"repo": "acme", "path": "a.go", "content_type": "code"}}]
		}
	}`))
	out, err := tool.Run(context.Background(), Input{
		Scope:       model.Scope{Type: model.ScopeRepo, Repos: []string{"acme"}},
		Query:       "  bootstrap  ",
		Vector:      []float64{0.1},
		ContentType: model.ContentCode,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Results)
}

func TestRunClampsTopKToMax(t *testing.T) {
	hits := `{"collections":{"code_coll":[`
	for i := 0; i < 25; i++ {
		if i > 0 {
			hits += ","
		}
		hits += `{"score": 0.5, "payload": {"repo": "acme", "path": "f` + string(rune('a'+i)) + `.go", "content_type": "code"}}`
	}
	hits += `]}}`

	tool := New(newEngine(t, hits))
	out, err := tool.Run(context.Background(), Input{
		Scope:       model.Scope{Type: model.ScopeRepo, Repos: []string{"acme"}},
		Query:       "bootstrap",
		Vector:      []float64{0.1},
		ContentType: model.ContentCode,
		TopK:        50,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Results), 20)
}

func TestRunPerRepoGuardCapsAtThreePerRepo(t *testing.T) {
	hits := `{"collections":{"code_coll":[`
	for i := 0; i < 5; i++ {
		if i > 0 {
			hits += ","
		}
		hits += `{"score": 0.5, "payload": {"repo": "hot", "path": "f` + string(rune('0'+i)) + `.go", "content_type": "code"}}`
	}
	hits += `]}}`

	tool := New(newEngine(t, hits))
	out, err := tool.Run(context.Background(), Input{
		Scope:       model.Scope{Type: model.ScopeAll},
		Query:       "bootstrap",
		Vector:      []float64{0.1},
		ContentType: model.ContentCode,
		TopK:        10,
	})
	require.NoError(t, err)

	counts := map[string]int{}
	for _, r := range out.Results {
		counts[r.Repo]++
	}
	assert.LessOrEqual(t, counts["hot"], 3)
}
