package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ruleflat/internal/ruleindex"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name       string
	Version    string
	OutputDir  string             // directory holding the generated rule sets
	Indexer    *ruleindex.Indexer // optional; search_rules is registered only when set
	MaxResults int
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	RegisterListTool(s, cfg.OutputDir)
	RegisterReadTool(s, cfg.OutputDir)
	if cfg.Indexer != nil {
		RegisterSearchTool(s, cfg.Indexer, cfg.MaxResults)
	}

	return s
}
