package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the uploaded documents semantically. Returns the most relevant passages with their source files and similarity scores."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
)

// indexStatusTool defines the index_status MCP tool.
var indexStatusTool = mcp.NewTool("index_status",
	mcp.WithDescription("Report which documents are indexed and how many chunks the index holds."),
)
