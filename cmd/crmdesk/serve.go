package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/crmdesk/internal/config"
	"github.com/rpggio/crmdesk/internal/mcp"
	"github.com/rpggio/crmdesk/internal/transport"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	stdio bool
	port  int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP endpoint",
		Long: `Serve the REST API under /api and MCP over streamable HTTP at /mcp.

With --stdio (or transport.mode: stdio) MCP is served on stdin/stdout instead and
logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.stdio, "stdio", false, "serve MCP over stdio")
	cmd.Flags().IntVar(&opts.port, "port", 0, "override server.port")

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *serveOptions) error {
	stdio := opts.stdio
	if !stdio {
		if cfg, err := rootOpts.loadConfig(); err == nil && cfg.Transport.Mode == config.TransportStdio {
			stdio = true
		}
	}

	// stdout carries JSON-RPC in stdio mode.
	logWriter := cmd.OutOrStdout()
	if stdio {
		logWriter = cmd.ErrOrStderr()
	}
	s, err := rootOpts.open(logWriter)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.port != 0 {
		s.cfg.Server.Port = opts.port
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.ServicesFrom(s.app.Services),
		Logger:   s.logger,
		Version:  version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if stdio {
		return runStdioMode(ctx, s.logger, mcpServer, &sdkmcp.StdioTransport{})
	}
	return runHTTPMode(ctx, s, mcpServer)
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server, t sdkmcp.Transport) error {
	logger.Info("starting stdio transport")
	if err := mcpServer.Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTPMode(ctx context.Context, s *session, mcpServer *sdkmcp.Server) error {
	opts := transport.Options{
		MCP:    mcp.NewHTTPHandler(mcpServer),
		Logger: s.logger,
	}
	if s.cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(transport.StaticToken(s.cfg.Auth.Token))
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           transport.NewServer(s.app.Services, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", httpServer.Addr, "backend", s.app.Mode(), "auth", s.cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

