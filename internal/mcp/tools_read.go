package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultReadLimit caps the number of lines returned by read_ruleset when no limit is given.
const DefaultReadLimit = 500

// ReadArgument defines read parameters.
type ReadArgument struct {
	Name   string `json:"name" jsonschema_description:"Rule set name as written to the output directory (e.g., reject)"`
	Offset int    `json:"offset,omitempty" jsonschema_description:"Number of lines to skip"`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum number of lines to return (default 500)"`
}

// ReadHandler handles the read_ruleset MCP tool.
type ReadHandler struct {
	outputDir string
}

// NewReadHandler creates a new read handler.
func NewReadHandler(outputDir string) *ReadHandler {
	return &ReadHandler{
		outputDir: outputDir,
	}
}

// Handle reads a generated rule set and returns a window of its lines.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgument) (*mcp.CallToolResult, any, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return errorResult("Name cannot be empty"), nil, nil
	}
	if err := validateName(name); err != nil {
		return errorResult(fmt.Sprintf("Invalid rule set name: %s", err)), nil, nil
	}
	if args.Offset < 0 || args.Limit < 0 {
		return errorResult("Offset and limit cannot be negative"), nil, nil
	}

	fullPath := filepath.Join(h.outputDir, name)
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(fmt.Sprintf("Rule set not found: %s", name)), nil, nil
		}
		return errorResult(fmt.Sprintf("Error accessing rule set: %s", err)), nil, nil
	}
	if info.IsDir() {
		return errorResult(fmt.Sprintf("Rule set not found: %s", name)), nil, nil
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("Error reading rule set: %s", err)), nil, nil
	}

	lines := splitLines(string(content))
	limit := args.Limit
	if limit == 0 {
		limit = DefaultReadLimit
	}
	start := min(args.Offset, len(lines))
	end := min(start+limit, len(lines))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Rule set**: `%s`\n", name))
	sb.WriteString(fmt.Sprintf("**Lines**: %d\n", len(lines)))
	if start > 0 || end < len(lines) {
		sb.WriteString(fmt.Sprintf("**Showing**: %d-%d\n", start+1, end))
	}
	sb.WriteString("\n```\n")
	for _, line := range lines[start:end] {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("```")
	if end < len(lines) {
		sb.WriteString(fmt.Sprintf("\n... %d more lines (use offset %d)", len(lines)-end, end))
	}

	return textResult(sb.String()), nil, nil
}

// validateName ensures the name refers to a file directly inside the output directory.
func validateName(name string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("absolute paths are not allowed")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("path traversal is not allowed")
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("hidden files are not rule sets")
	}
	return nil
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReadHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "read_ruleset",
		Description: "Read the lines of a generated rule set",
	}
}

// RegisterReadTool registers the read tool with an MCP server.
func RegisterReadTool(server *mcp.Server, outputDir string) {
	handler := NewReadHandler(outputDir)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
