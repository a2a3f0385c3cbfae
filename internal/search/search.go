package search

import (
	"context"
	"fmt"
	"strings"
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	Link    string `json:"link"`
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// FormatResults renders results as the knowledge block embedded into a question.
func FormatResults(results []Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("📌 %s\n%s\n🔗 %s", r.Title, r.Snippet, r.Link))
	}
	return strings.Join(blocks, "\n\n")
}
