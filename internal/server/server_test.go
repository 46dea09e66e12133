package server

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamaly87/code-compass/internal/config"
)

func TestNewAndRunStdioInitialize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "acme"), 0o755))

	t.Setenv("CODEBASE_ROOT", root)
	t.Setenv("QDRANT_URL", "http://unused")
	t.Setenv("QDRANT_COLLECTION_BASE", "proj")
	t.Setenv("MCP_QDRANT_MOCK_RESPONSE", `{"collections":{}}`)

	cfg, err := config.Load()
	require.NoError(t, err)

	s, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.RunStdio(context.Background(), in, &out))
	assert.Contains(t, out.String(), `"protocolVersion"`)
}
