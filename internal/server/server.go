// Package server is Code Compass's composition root: it wires
// configuration into the vector store client, Retrieval Engine, Scope
// Resolver, embedding/chat clients, the three tools, and the Protocol
// Dispatcher, then exposes RunStdio/RunHTTP to drive either transport.
//
// Grounded on the teacher's internal/mcp.NewServer, which performs the same
// "construct every collaborator, then build the server" sequence, adapted
// to this repo's dual-collection/RAG-tool shape.
package server

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/jamaly87/code-compass/internal/chat"
	"github.com/jamaly87/code-compass/internal/config"
	"github.com/jamaly87/code-compass/internal/embeddings"
	"github.com/jamaly87/code-compass/internal/protocol"
	"github.com/jamaly87/code-compass/internal/retrieval"
	"github.com/jamaly87/code-compass/internal/sandbox"
	"github.com/jamaly87/code-compass/internal/tools/filereader"
	"github.com/jamaly87/code-compass/internal/tools/rag"
	"github.com/jamaly87/code-compass/internal/tools/search"
	"github.com/jamaly87/code-compass/internal/transport"
	"github.com/jamaly87/code-compass/internal/vectorstore"
)

// Server holds every wired collaborator and the dispatcher built from them.
type Server struct {
	cfg        *config.Config
	dispatcher *protocol.Dispatcher
	log        zerolog.Logger
}

// New builds a Server from resolved configuration.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	store := vectorstore.New(cfg.VectorStoreURL, cfg.VectorStoreAPIKey, config.StoreTimeout)
	if cfg.MockResponse != "" {
		if err := store.WithMock(cfg.MockResponse); err != nil {
			return nil, fmt.Errorf("load vector store mock: %w", err)
		}
	}

	engine := retrieval.New(store, cfg.CollectionCode, cfg.CollectionDocs, cfg.RRFK, cfg.DiversityFloor)
	sb := sandbox.New(cfg.CodebaseRoot)

	searchTool := search.New(engine)
	reader := filereader.New(sb)

	embedder := embeddings.New(cfg.EmbeddingURL, config.CollaboratorTimeout)
	chatter := chat.New(cfg.EmbeddingURL, config.CollaboratorTimeout)
	ragTool := rag.New(searchTool, reader, embedder, chatter, cfg.EmbeddingModelCode, cfg.EmbeddingModelDocs, cfg.ChatModel)

	dispatcher := protocol.New(searchTool, reader, ragTool, cfg.AllowGlobalScope, log)

	return &Server{cfg: cfg, dispatcher: dispatcher, log: log}, nil
}

// RunStdio drives the autodetected STDIO transport until EOF or ctx is
// canceled.
func (s *Server) RunStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := transport.NewStdioServer(s.dispatcher, s.log)
	return stdio.Run(ctx, in, out)
}

// RunHTTP starts the HTTP transport on the configured host:port and blocks
// until ctx is canceled, then performs a graceful shutdown.
func (s *Server) RunHTTP(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.HTTPHost, s.cfg.HTTPPort)
	handler := transport.NewHTTPHandler(s.dispatcher, s.log)
	return transport.Serve(ctx, addr, handler, s.log)
}
