package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallgren/gatecheck/internal/host"
)

const (
	serverName      = "gatecheck"
	serverVersion   = "0.1.0"
	protocolVersion = "2025-03-26"
)

// Services contains all domain services needed by MCP.
type Services struct {
	Catalog     CatalogService
	Answers     AnswerService
	Assignments AssignmentService
	Progress    ProgressService
	WorkItems   host.WorkItems
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      ScopeResolver
	AuthEnabled   bool
	DefaultScope  string
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	defaultScope := cfg.DefaultScope
	if defaultScope == "" {
		defaultScope = "default"
	}

	// Add middleware (auth + session extraction)
	// Stdio mode: always disable auth (local dev only)
	if cfg.TransportMode == "stdio" {
		server.AddReceivingMiddleware(noAuthMiddleware(defaultScope))
	} else {
		// HTTP mode: auth based on config
		if cfg.AuthEnabled {
			server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
		} else {
			server.AddReceivingMiddleware(noAuthMiddleware(defaultScope))
		}
	}
	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	// Register all tools
	registerTools(server, cfg.Services)

	return server
}
