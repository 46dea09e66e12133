package embeddings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	vec, err := c.Embed(context.Background(), "nomic-embed-text", "how does auth work")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestEmbedInvalidShapeZeroEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Embed(context.Background(), "m", "q")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeEmbeddingInvalid, ce.Code)
}

func TestEmbedInvalidShapeMalformedVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[[0.1, "not-a-number"]]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Embed(context.Background(), "m", "q")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeEmbeddingInvalid, ce.Code)
}

func TestEmbedFailedOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Embed(context.Background(), "m", "q")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeEmbeddingFailed, ce.Code)
}
