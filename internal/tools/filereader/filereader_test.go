package filereader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, content string) *Tool {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme", "file.go"), []byte(content), 0o644))
	return New(sandbox.New(root))
}

func TestReadBasicRange(t *testing.T) {
	tool := setup(t, "line1\nline2\nline3\nline4\n")
	resp, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go", StartLine: 2, EndLine: 3, MaxBytes: 1000})
	require.NoError(t, err)
	assert.Equal(t, "line2\nline3\n", resp.Text)
	assert.Equal(t, 2, resp.StartLine)
	assert.Equal(t, 3, resp.EndLine)
	require.NotNil(t, resp.TotalLines)
	assert.Equal(t, 4, *resp.TotalLines)
	assert.False(t, resp.Truncated)
}

func TestReadDefaultsStartLineToOne(t *testing.T) {
	tool := setup(t, "a\nb\nc\n")
	resp, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.StartLine)
}

func TestReadEndLineClampedToStartPlus199(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("x\n")
	}
	tool := setup(t, b.String())
	resp, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go", StartLine: 1, EndLine: 300})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.EndLine)
}

func TestReadRejectsEndLineBeforeStartLine(t *testing.T) {
	tool := setup(t, "a\nb\n")
	_, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go", StartLine: 5, EndLine: 2})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeBadRequest, ce.Code)
}

func TestReadRejectsNegativeStartLine(t *testing.T) {
	tool := setup(t, "a\nb\n")
	_, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go", StartLine: -1})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeBadRequest, ce.Code)
}

func TestReadTruncatesOnByteBudget(t *testing.T) {
	tool := setup(t, "aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc\n")
	resp, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go", StartLine: 1, EndLine: 3, MaxBytes: 15})
	require.NoError(t, err)
	assert.True(t, resp.Truncated)
	assert.Nil(t, resp.TotalLines)
	assert.LessOrEqual(t, len(resp.Text), 15)
}

func TestReadMaxBytesClampedToOneMillion(t *testing.T) {
	tool := setup(t, "hello\n")
	resp, err := tool.Read(model.FileRange{Repo: "acme", Path: "file.go", StartLine: 1, EndLine: 1, MaxBytes: 5_000_000})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", resp.Text)
}

func TestReadRejectsEmbeddedNUL(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme", "bin.go"), []byte("ok\n\x00bad\n"), 0o644))
	tool := New(sandbox.New(root))

	_, err := tool.Read(model.FileRange{Repo: "acme", Path: "bin.go", StartLine: 1, EndLine: 2})
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeUnsupportedMedia, ce.Code)
}
