package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(repo, path string, score float64) model.Hit {
	return model.Hit{Score: score, Payload: map[string]any{"repo": repo, "path": path, "content_type": "code"}}
}

func docHit(repo, path string, score float64) model.Hit {
	return model.Hit{Score: score, Payload: map[string]any{"repo": repo, "path": path, "content_type": "docs"}}
}

func TestFuseOrdersByRRFScore(t *testing.T) {
	code := []model.Hit{hit("a", "1.go", 0.9), hit("a", "2.go", 0.8)}
	docs := []model.Hit{docHit("a", "guide.md", 0.95)}

	fused := fuse(code, docs, 60, 10, 0)
	require.Len(t, fused, 3)
	// docs hit is rank 1 in its own list (score 1/61), code hit 1 is rank 1
	// in its list (score 1/61) too; code wins the tie by origin order.
	assert.Equal(t, "1.go", fused[0].Path())
	assert.Equal(t, "guide.md", fused[1].Path())
	assert.Equal(t, "2.go", fused[2].Path())
}

func TestFuseDiversityFloorGuaranteesDocsRepresentation(t *testing.T) {
	code := []model.Hit{hit("a", "1.go", 0.9), hit("a", "2.go", 0.9), hit("a", "3.go", 0.9), hit("a", "4.go", 0.9)}
	docs := []model.Hit{docHit("a", "guide.md", 0.1)}

	fused := fuse(code, docs, 60, 4, 1)
	require.Len(t, fused, 4)

	var sawDocs bool
	for _, h := range fused {
		if h.ContentType() == model.ContentDocs {
			sawDocs = true
		}
	}
	assert.True(t, sawDocs, "diversity floor should surface at least one docs hit")
}

func TestFuseTruncatesToTopK(t *testing.T) {
	code := []model.Hit{hit("a", "1.go", 0.9), hit("a", "2.go", 0.8), hit("a", "3.go", 0.7)}
	fused := fuse(code, nil, 60, 2, 0)
	assert.Len(t, fused, 2)
}

func newMockStore(t *testing.T, mockJSON string) *vectorstore.Client {
	t.Helper()
	c := vectorstore.New("http://unused", "", time.Second)
	require.NoError(t, c.WithMock(mockJSON))
	return c
}

func TestRetrieveSingleTargetCode(t *testing.T) {
	store := newMockStore(t, `{
		"collections": {
			"code_coll": [
				{"score": 0.9, "payload": {"repo": "a", "path": "x.go", "content_type": "code"}}
			]
		}
	}`)
	eng := New(store, "code_coll", "docs_coll", 60, 1)
	resp, err := eng.Retrieve(context.Background(), model.RetrievalRequest{
		ContentType: model.ContentCode,
		TopK:        5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	require.Len(t, resp.CollectionsMeta, 1)
	assert.Equal(t, model.StatusOK, resp.CollectionsMeta[0].Status)
	assert.Equal(t, "code_coll", resp.Collection)
}

func TestRetrieveDualTargetMergesBoth(t *testing.T) {
	store := newMockStore(t, `{
		"collections": {
			"code_coll": [{"score": 0.9, "payload": {"repo": "a", "path": "x.go", "content_type": "code"}}],
			"docs_coll": [{"score": 0.8, "payload": {"repo": "a", "path": "readme.md", "content_type": "docs"}}]
		}
	}`)
	eng := New(store, "code_coll", "docs_coll", 60, 1)
	resp, err := eng.Retrieve(context.Background(), model.RetrievalRequest{
		ContentType: model.ContentAll,
		TopK:        5,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 2)
	assert.Len(t, resp.CollectionsMeta, 2)
	for _, m := range resp.CollectionsMeta {
		assert.Equal(t, model.StatusOK, m.Status)
	}
}

func TestRetrieveDualTargetPartialFailureNonStrict(t *testing.T) {
	store := newMockStore(t, `{
		"collections": {
			"code_coll": [{"score": 0.9, "payload": {"repo": "a", "path": "x.go", "content_type": "code"}}]
		}
	}`)
	eng := New(store, "code_coll", "docs_coll_missing", 60, 1)
	resp, err := eng.Retrieve(context.Background(), model.RetrievalRequest{
		ContentType: model.ContentAll,
		TopK:        5,
		Strict:      false,
	})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)

	var codeMeta, docsMeta model.CollectionMeta
	for _, m := range resp.CollectionsMeta {
		if m.ContentType == model.ContentCode {
			codeMeta = m
		} else {
			docsMeta = m
		}
	}
	assert.Equal(t, model.StatusPartial, codeMeta.Status)
	assert.Equal(t, model.StatusUnavailable, docsMeta.Status)
}

func TestRetrieveDualTargetStrictFailsOnPartial(t *testing.T) {
	store := newMockStore(t, `{
		"collections": {
			"code_coll": [{"score": 0.9, "payload": {"repo": "a", "path": "x.go", "content_type": "code"}}]
		}
	}`)
	eng := New(store, "code_coll", "docs_coll_missing", 60, 1)
	_, err := eng.Retrieve(context.Background(), model.RetrievalRequest{
		ContentType: model.ContentAll,
		TopK:        5,
		Strict:      true,
	})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeQdrantUnavailable, ce.Code)
}

func TestRetrieveDualTargetBothFailRegardlessOfStrict(t *testing.T) {
	store := newMockStore(t, `{"collections": {}}`)
	eng := New(store, "code_coll_missing", "docs_coll_missing", 60, 1)
	_, err := eng.Retrieve(context.Background(), model.RetrievalRequest{
		ContentType: model.ContentAll,
		TopK:        5,
		Strict:      false,
	})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeQdrantUnavailable, ce.Code)
}
