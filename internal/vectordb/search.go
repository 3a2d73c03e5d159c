package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (relevance: %.3f) ---\n", i+1, r.RelevanceScore))

		if title := r.Metadata["title"]; title != "" {
			sb.WriteString(fmt.Sprintf("Title: %s\n", title))
		}
		if price := r.Metadata["current_price"]; price != "" {
			sb.WriteString(fmt.Sprintf("Price: %s\n", price))
		}
		if category := r.Metadata["category"]; category != "" {
			sb.WriteString(fmt.Sprintf("Category: %s\n", category))
		}

		sb.WriteString("\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
