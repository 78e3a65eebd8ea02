package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"docchat/internal/vectordb"
)

// handleSearchDocuments performs semantic search over the document index.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	results, err := s.pipeline.Query(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. Upload documents first with `docchat ingest` or the /upload endpoint."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleIndexStatus reports the indexed documents and chunk count.
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs := s.pipeline.Documents()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Index holds %d chunks across %d document(s).\n", s.pipeline.Size(), len(docs)))
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("- %s (%d chunks, id %s)\n", doc.Filename, doc.Chunks, doc.DocumentID))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults converts search results into a rich text format
// optimized for AI agent consumption.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("File: %s (chunk %d)\n", r.Metadata.Filename, r.Metadata.ChunkIndex))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Score*100))
		sb.WriteString("\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
