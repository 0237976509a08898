package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ruleflat/internal/ruleindex"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query   string `json:"query" jsonschema_description:"Domain, keyword or regexp to look up; matches exact values and substrings. A tagged line such as domain:example.com also filters by tag"`
	RuleSet string `json:"rule_set,omitempty" jsonschema_description:"Filter by rule set name (e.g., reject, cdn)"`
	Tag     string `json:"tag,omitempty" jsonschema_description:"Filter by tag: full, domain, keyword or regexp"`
}

// SearchHandler handles the search_rules MCP tool.
type SearchHandler struct {
	indexer    *ruleindex.Indexer
	maxResults int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(indexer *ruleindex.Indexer, maxResults int) *SearchHandler {
	return &SearchHandler{
		indexer:    indexer,
		maxResults: maxResults,
	}
}

// Handle executes the search and returns formatted results.
// The index is opened per call so results follow the latest pipeline run.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	index, err := h.indexer.Open()
	if err != nil {
		if errors.Is(err, ruleindex.ErrIndexNotFound) {
			return errorResult("Search is not available. Rule sets have not been indexed yet, run ruleflat first."), nil, nil
		}
		return errorResult(fmt.Sprintf("Failed to access index: %s", err)), nil, nil
	}
	defer func() { _ = index.Close() }()

	result, err := ruleindex.Search(index, ruleindex.Query{
		Text:    args.Query,
		RuleSet: args.RuleSet,
		Tag:     args.Tag,
		Limit:   h.maxResults,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return textResult(FormatSearchResult(result, args.Query)), nil, nil
}

// FormatSearchResult renders search hits as markdown.
func FormatSearchResult(result *ruleindex.Result, queryStr string) string {
	if result.Total == 0 {
		return fmt.Sprintf("No rules found for query: %s", queryStr)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d rules for '%s':\n\n", result.Total, queryStr))

	for i, hit := range result.Hits {
		sb.WriteString(fmt.Sprintf("%d. `%s` in **%s**\n", i+1, hit.Line, hit.RuleSet))
	}

	if result.Total > uint64(len(result.Hits)) {
		sb.WriteString(fmt.Sprintf("\n... and %d more rules\n", result.Total-uint64(len(result.Hits))))
	}

	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_rules",
		Description: "Find which generated rule sets contain a domain, suffix, keyword or regexp rule",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, indexer *ruleindex.Indexer, maxResults int) {
	handler := NewSearchHandler(indexer, maxResults)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
