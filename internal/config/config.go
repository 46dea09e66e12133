// Package config resolves Code Compass's process-wide configuration
// (spec.md §3) once at startup from environment sources, following the
// teacher's env-override tradition but replacing its YAML file with the
// plain environment-variable contract spec.md §6 names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// StoreTimeout is the per-call HTTP timeout to the vector store.
	StoreTimeout = 5 * time.Second
	// CollaboratorTimeout is the per-call HTTP timeout to the embedding and
	// chat services.
	CollaboratorTimeout = 120 * time.Second

	defaultHTTPPort = 3001
	defaultHost     = "0.0.0.0"
)

// raw mirrors the recognized environment variables of spec.md §6; envconfig
// fills it, and Load derives the public Config from it.
type raw struct {
	VectorStoreURL    string `envconfig:"QDRANT_URL"`
	VectorStoreAPIKey string `envconfig:"QDRANT_API_KEY"`
	CollectionBase    string `envconfig:"QDRANT_COLLECTION_BASE"`
	CollectionCode    string `envconfig:"QDRANT_COLLECTION_CODE"`
	CollectionDocs    string `envconfig:"QDRANT_COLLECTION_DOCS"`
	RRFK              int    `envconfig:"RRF_K"`
	DiversityFloor    int    `envconfig:"RRF_DIVERSITY_FLOOR"`

	EmbeddingURL       string `envconfig:"OLLAMA_URL"`
	EmbeddingModelCode string `envconfig:"EMBEDDING_MODEL_CODE"`
	EmbeddingModelDocs string `envconfig:"EMBEDDING_MODEL_DOCS"`
	ChatModel          string `envconfig:"LLM_MODEL"`

	CodebaseRoot      string `envconfig:"CODEBASE_ROOT"`
	AllowGlobalScope  bool   `envconfig:"ALLOW_GLOBAL_SCOPE"`

	ServerMode string `envconfig:"MCP_SERVER_MODE"`
	HTTPHost   string `envconfig:"MCP_HTTP_HOST"`
	HTTPPort   string `envconfig:"MCP_HTTP_PORT"`
	Port       string `envconfig:"PORT"`

	MockResponse string `envconfig:"MCP_QDRANT_MOCK_RESPONSE"`
}

// Config is the immutable, resolved Process-Wide Configuration of spec.md §3.
type Config struct {
	VectorStoreURL    string
	VectorStoreAPIKey string
	CollectionCode    string
	CollectionDocs    string
	RRFK              int
	DiversityFloor    int

	EmbeddingURL       string
	EmbeddingModelCode string
	EmbeddingModelDocs string
	ChatModel          string

	CodebaseRoot     string
	AllowGlobalScope bool

	ServerMode string
	HTTPHost   string
	HTTPPort   int

	MockResponse string
}

// envFiles is the fixed bootstrap search order of spec.md §4.9: per-service
// local override, per-service default, repo-root local override, repo-root
// default. No file overwrites a variable already set by the process
// environment or by a file loaded before it, so earlier entries win.
var envFiles = []string{
	".env.server.local",
	".env.server",
	".env.local",
	".env",
}

// Load runs the fixed env-file bootstrap order and then resolves Config.
// It fails only on bootstrap errors: missing required config, invalid
// collection configuration, or an unreadable codebase root, matching the
// exit-code-1 conditions of spec.md §6.
func Load() (*Config, error) {
	for _, f := range envFiles {
		// godotenv.Load never overwrites a variable already present in the
		// process environment; a missing file is not an error here since
		// every entry in the search order is optional.
		_ = godotenv.Load(f)
	}

	var r raw
	if err := envconfig.Process("", &r); err != nil {
		return nil, fmt.Errorf("resolve environment: %w", err)
	}

	return resolve(&r)
}

func resolve(r *raw) (*Config, error) {
	if r.CodebaseRoot == "" {
		return nil, fmt.Errorf("CODEBASE_ROOT is required")
	}
	info, err := os.Stat(r.CodebaseRoot)
	if err != nil {
		return nil, fmt.Errorf("codebase root %q: %w", r.CodebaseRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("codebase root %q is not a directory", r.CodebaseRoot)
	}
	root, err := filepath.Abs(r.CodebaseRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve codebase root: %w", err)
	}

	if r.VectorStoreURL == "" {
		return nil, fmt.Errorf("QDRANT_URL is required")
	}

	codeCollection := r.CollectionCode
	docsCollection := r.CollectionDocs
	if r.CollectionBase != "" {
		if codeCollection == "" {
			codeCollection = r.CollectionBase + "__code"
		}
		if docsCollection == "" {
			docsCollection = r.CollectionBase + "__docs"
		}
	}
	if codeCollection == "" || docsCollection == "" {
		return nil, fmt.Errorf("QDRANT_COLLECTION_BASE, or both QDRANT_COLLECTION_CODE and QDRANT_COLLECTION_DOCS, must be set")
	}
	if codeCollection == docsCollection {
		return nil, fmt.Errorf("code and docs collection names must differ, both resolved to %q", codeCollection)
	}

	rrfK := r.RRFK
	if rrfK <= 0 {
		rrfK = 60
	}
	diversityFloor := r.DiversityFloor
	if diversityFloor <= 0 {
		diversityFloor = 1
	}

	mode := r.ServerMode
	if mode != "http" {
		mode = "stdio"
	}
	host := r.HTTPHost
	if host == "" {
		host = defaultHost
	}

	cfg := &Config{
		VectorStoreURL:     r.VectorStoreURL,
		VectorStoreAPIKey:  r.VectorStoreAPIKey,
		CollectionCode:     codeCollection,
		CollectionDocs:     docsCollection,
		RRFK:               rrfK,
		DiversityFloor:     diversityFloor,
		EmbeddingURL:       r.EmbeddingURL,
		EmbeddingModelCode: r.EmbeddingModelCode,
		EmbeddingModelDocs: r.EmbeddingModelDocs,
		ChatModel:          r.ChatModel,
		CodebaseRoot:       root,
		AllowGlobalScope:   r.AllowGlobalScope,
		ServerMode:         mode,
		HTTPHost:           host,
		HTTPPort:           resolvePort(r.HTTPPort, r.Port),
		MockResponse:       r.MockResponse,
	}
	return cfg, nil
}

// resolvePort implements spec.md §4.9's precedence: explicit override, else
// generic PORT, else 3001; non-finite or non-positive values fall back.
func resolvePort(explicit, generic string) int {
	for _, candidate := range []string{explicit, generic} {
		if candidate == "" {
			continue
		}
		n, err := strconv.Atoi(candidate)
		if err != nil || n <= 0 {
			continue
		}
		return n
	}
	return defaultHTTPPort
}
