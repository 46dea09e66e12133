package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jamaly87/code-compass/internal/protocol"
)

const shutdownTimeout = 5 * time.Second

// NewHTTPHandler builds the chi router exposing POST /mcp and GET /metrics,
// grounded on _examples/helixml-kodit's infrastructure/api.Server
// (chi.NewRouter + Recoverer + graceful Shutdown) layered with go-chi/cors.
func NewHTTPHandler(d *protocol.Dispatcher, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Post("/mcp", mcpHandler(d))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("http request")
			next.ServeHTTP(w, r)
		})
	}
}

// mcpHandler dispatches one JSON-RPC message per spec.md §4.9: 400 with a
// bare -32600 body on a request that is not valid JSON or does not satisfy
// the JSON-RPC 2.0 shape (missing/wrong "jsonrpc", missing "method"), 204
// for notifications, 200 with the JSON-RPC response otherwise.
func mcpHandler(d *protocol.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
		if err != nil {
			writeInvalidRequest(w)
			return
		}
		defer r.Body.Close()

		if !json.Valid(raw) || !protocol.ValidShape(raw) {
			writeInvalidRequest(w)
			return
		}

		resp, has := d.HandleJSONRPC(r.Context(), raw)
		if !has {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeInvalidRequest(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": map[string]any{
			"code":    -32600,
			"message": "invalid request",
		},
	})
}

// Serve starts the HTTP server on addr and blocks until ctx is canceled,
// then performs a graceful shutdown.
func Serve(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
