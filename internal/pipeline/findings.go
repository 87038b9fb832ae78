package pipeline

import (
	"fmt"
	"net/url"
	"strings"
)

// ExecutedQuery pairs a query with the answer research returned for it.
type ExecutedQuery struct {
	Query  string
	Answer string
}

// BuildFindings renders a topic's query results as the numbered findings
// text the script generator consumes. With no executed queries it falls back
// to the topic text alone.
func BuildFindings(topicText string, queries []ExecutedQuery) string {
	if len(queries) == 0 {
		return topicText
	}

	parts := make([]string, 0, len(queries))
	for i, q := range queries {
		answer := q.Answer
		if strings.TrimSpace(answer) == "" {
			answer = "No answer returned"
		}
		parts = append(parts, fmt.Sprintf("Query %d: %s\nFindings: %s", i+1, q.Query, answer))
	}
	return strings.Join(parts, "\n\n")
}

// NormalizeSourceURL produces the case-insensitive dedup key for a citation:
// fragment dropped, trailing slash trimmed, lowercased.
func NormalizeSourceURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil {
		return strings.ToLower(strings.TrimSuffix(trimmed, "/"))
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.ToLower(strings.TrimSuffix(u.String(), "/"))
}

// DedupSourceURLs keeps the first occurrence of each citation by normalized
// form, preserving the original URL text and order.
func DedupSourceURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		key := NormalizeSourceURL(raw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, raw)
	}
	return out
}
