package sandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jamaly87/code-compass/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "acme", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme", "pkg", "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme", "binary.bin"), []byte{0x00, 0x01, 0x02}, 0o644))
	return root
}

func TestResolveOK(t *testing.T) {
	root := setupRoot(t)
	sb := New(root)
	p, err := sb.Resolve("acme", "pkg/main.go")
	require.NoError(t, err)
	assert.FileExists(t, p)
}

func TestResolveRejectsBadRepoName(t *testing.T) {
	root := setupRoot(t)
	sb := New(root)
	_, err := sb.Resolve("../etc", "main.go")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeBadRequest, ce.Code)
}

func TestResolveMissingRepo(t *testing.T) {
	root := setupRoot(t)
	sb := New(root)
	_, err := sb.Resolve("ghost", "main.go")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeNotFound, ce.Code)
}

func TestResolveRejectsDotDotSegment(t *testing.T) {
	root := setupRoot(t)
	sb := New(root)
	_, err := sb.Resolve("acme", "pkg/../../escape.go")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeForbidden, ce.Code)
}

func TestResolveRejectsAbsolutePath(t *testing.T) {
	root := setupRoot(t)
	sb := New(root)
	_, err := sb.Resolve("acme", "/etc/passwd")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeForbidden, ce.Code)
}

func TestResolveRejectsEmptyPath(t *testing.T) {
	root := setupRoot(t)
	sb := New(root)
	_, err := sb.Resolve("acme", "")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeBadRequest, ce.Code)
}

func TestResolveBlocksSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := setupRoot(t)
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.go")
	require.NoError(t, os.WriteFile(secret, []byte("package secret\n"), 0o644))

	link := filepath.Join(root, "acme", "escape")
	require.NoError(t, os.Symlink(outside, link))

	sb := New(root)
	_, err := sb.Resolve("acme", "escape/secret.go")
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeForbidden, ce.Code)
}

func TestClassifyTextRejectsBinary(t *testing.T) {
	root := setupRoot(t)
	err := ClassifyText(filepath.Join(root, "acme", "binary.bin"))
	require.Error(t, err)
	var ce *model.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, model.CodeUnsupportedMedia, ce.Code)
}

func TestClassifyTextAcceptsUTF8(t *testing.T) {
	root := setupRoot(t)
	err := ClassifyText(filepath.Join(root, "acme", "pkg", "main.go"))
	require.NoError(t, err)
}
