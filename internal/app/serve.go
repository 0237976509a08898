package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ruleflat/internal/config"
	mcputil "github.com/sha1n/ruleflat/internal/mcp"
	"github.com/sha1n/ruleflat/internal/ruleindex"
	"github.com/spf13/pflag"
)

// ServeParams contains dependencies for the serve command
type ServeParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings, string) (*mcp.Server, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultServeParams returns production dependencies
func DefaultServeParams() ServeParams {
	return ServeParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateServeSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// ServeWithDeps serves the generated rule sets over MCP with the provided dependencies
func ServeWithDeps(ctx context.Context, params ServeParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging()

	slog.Info("Starting ruleflat MCP server", "version", version)
	config.LogServe(settings)

	mcpServer, err := params.CreateServer(settings, version)
	if err != nil {
		return err
	}

	if settings.Serve.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Serve.Host, "port", settings.Serve.Port)
	return params.StartSSEServer(mcpServer, settings)
}

// CreateMCPServer creates the MCP server with registered tools
func CreateMCPServer(settings *config.Settings, version string) (*mcp.Server, error) {
	// Runs with indexing disabled leave any existing index stale, so search is not offered
	var indexer *ruleindex.Indexer
	if settings.Index.Enabled {
		indexer = ruleindex.NewIndexer(settings.StateDir)
		if !indexer.Exists() {
			slog.Warn("Rule index not found, search_rules will report it until ruleflat runs", "path", indexer.Path())
		}
	}

	return mcputil.CreateServer(mcputil.ServerConfig{
		Name:       "ruleflat",
		Version:    version,
		OutputDir:  settings.OutputDir,
		Indexer:    indexer,
		MaxResults: settings.Serve.MaxResults,
	}), nil
}
