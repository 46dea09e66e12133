// Package main is the entry point for the code-compass CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jamaly87/code-compass/internal/config"
	"github.com/jamaly87/code-compass/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code-compass",
		Short: "Code Compass retrieval server",
		Long:  "Code Compass queries a codebase already indexed in a vector store and exposes semantic search, bounded file reading, and grounded question-answering as MCP tools.",
		// With no subcommand, MCP_SERVER_MODE remains authoritative: "http"
		// selects RunHTTP, anything else (the default) selects RunStdio.
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			mode := "stdio"
			if cfg.ServerMode == "http" {
				mode = "http"
			}
			return runServer(cfg, log, mode)
		},
	}

	cmd.AddCommand(stdioCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Run the MCP server on stdio, framing autodetected from the first message",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			return runServer(cfg, log, "stdio")
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			return runServer(cfg, log, "http")
		},
	}
}

// runServer builds the Server and drives the requested transport until
// shutdown.
func runServer(cfg *config.Config, log zerolog.Logger, mode string) error {
	printBanner(cfg, mode)

	srv, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if mode == "http" {
		return srv.RunHTTP(ctx)
	}
	return srv.RunStdio(ctx, os.Stdin, os.Stdout)
}

// bootstrap resolves configuration and builds the process-wide logger.
// Exit code 1 on any bootstrap failure (missing or unreadable CODEBASE_ROOT,
// unset QDRANT_URL, malformed collection configuration) per spec.md §6.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, newLogger(), nil
}

// newLogger builds one process-scoped zerolog.Logger: console-pretty when
// stderr is a TTY, structured JSON otherwise.
func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// printBanner writes a short non-JSON startup block to stderr summarizing
// resolved configuration, before the structured logger takes over.
func printBanner(cfg *config.Config, mode string) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	bold.Fprintln(os.Stderr, "code-compass")
	cyan.Fprintf(os.Stderr, "  mode:        %s\n", mode)
	cyan.Fprintf(os.Stderr, "  codebase:    %s\n", cfg.CodebaseRoot)
	cyan.Fprintf(os.Stderr, "  collections: %s, %s\n", cfg.CollectionCode, cfg.CollectionDocs)
	cyan.Fprintf(os.Stderr, "  global scope: %v\n", cfg.AllowGlobalScope)
	if mode == "http" {
		cyan.Fprintf(os.Stderr, "  listening:   %s:%d\n", cfg.HTTPHost, cfg.HTTPPort)
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM for graceful
// shutdown.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
