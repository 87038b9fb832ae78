package pipeline

import "strings"

// SelectFresh walks candidates in order and keeps the first occurrence of
// each query that has not been used before, comparing by trimmed, lowercased
// form. The original candidate text is preserved in the output. It promises
// no particular count; callers truncate and fall back themselves.
func SelectFresh(candidates []string, history []string) []string {
	used := make(map[string]struct{}, len(history))
	for _, h := range history {
		used[normalizeQuery(h)] = struct{}{}
	}

	var fresh []string
	for _, c := range candidates {
		n := normalizeQuery(c)
		if n == "" {
			continue
		}
		if _, ok := used[n]; ok {
			continue
		}
		used[n] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
