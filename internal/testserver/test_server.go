// Package testserver runs the full HTTP surface over zero-latency mock stores.
package testserver

import (
	"net/http/httptest"
	"testing"

	"github.com/rpggio/crmdesk/internal/app"
	"github.com/rpggio/crmdesk/internal/config"
	"github.com/rpggio/crmdesk/internal/mcp"
	"github.com/rpggio/crmdesk/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	App    *app.App
	Token  string
}

// Option adjusts the configuration before the app is built.
type Option func(*config.Config)

// WithoutSeed starts from empty stores.
func WithoutSeed() Option {
	return func(c *config.Config) { c.Backend.Mock.Seed = false }
}

// New starts a server whose REST and MCP routes require token. An empty
// token disables auth.
func New(t *testing.T, token string, opts ...Option) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.Backend.Mock.MinLatency = 0
	cfg.Backend.Mock.MaxLatency = 0
	for _, opt := range opts {
		opt(&cfg)
	}

	a, err := app.New(cfg, nil)
	require.NoError(t, err)

	mcpServer := mcp.NewServer(mcp.Config{Services: mcp.ServicesFrom(a.Services)})

	routerOpts := transport.Options{MCP: mcp.NewHTTPHandler(mcpServer)}
	if token != "" {
		routerOpts.Auth = transport.AuthMiddleware(transport.StaticToken(token))
	}
	server := httptest.NewServer(transport.NewServer(a.Services, routerOpts))

	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return &TestServer{Server: server, App: a, Token: token}
}
