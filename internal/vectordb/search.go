package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No relevant information found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (score: %.4f) ---\n", i+1, r.Score))
		sb.WriteString(fmt.Sprintf("Source: %s (chunk %d)\n\n", r.Metadata.Filename, r.Metadata.ChunkIndex))
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// BuildContext concatenates result contents into a single prompt context
// for the language model.
func BuildContext(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, "\n\n")
}
