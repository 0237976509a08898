package mcp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListArgument defines list parameters.
type ListArgument struct{}

// ListHandler handles the list_rulesets MCP tool.
type ListHandler struct {
	outputDir string
}

// NewListHandler creates a new list handler.
func NewListHandler(outputDir string) *ListHandler {
	return &ListHandler{outputDir: outputDir}
}

// Handle lists the generated rule sets with their line counts.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgument) (*mcp.CallToolResult, any, error) {
	entries, err := os.ReadDir(h.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult("No rule sets have been generated yet, run ruleflat first."), nil, nil
		}
		return errorResult(fmt.Sprintf("Error reading output directory: %s", err)), nil, nil
	}

	var sb strings.Builder
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(h.outputDir, entry.Name()))
		if err != nil {
			continue
		}
		lines := 0
		if len(content) > 0 {
			lines = bytes.Count(content, []byte("\n")) + 1
		}
		count++
		sb.WriteString(fmt.Sprintf("- **%s**: %d rules\n", entry.Name(), lines))
	}

	if count == 0 {
		return textResult("No rule sets found"), nil, nil
	}
	return textResult(fmt.Sprintf("Found %d rule sets:\n\n%s", count, sb.String())), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ListHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_rulesets",
		Description: "List the generated rule sets and their rule counts",
	}
}

// RegisterListTool registers the list tool with an MCP server.
func RegisterListTool(server *mcp.Server, outputDir string) {
	handler := NewListHandler(outputDir)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
