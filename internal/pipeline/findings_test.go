package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFindingsNumbersQueries(t *testing.T) {
	findings := BuildFindings("space news", []ExecutedQuery{
		{Query: "latest launches", Answer: "Two launches this week."},
		{Query: "mars rover update", Answer: "Rover reached the crater."},
	})

	assert.Equal(t,
		"Query 1: latest launches\nFindings: Two launches this week.\n\n"+
			"Query 2: mars rover update\nFindings: Rover reached the crater.",
		findings)
}

func TestBuildFindingsMarksMissingAnswers(t *testing.T) {
	findings := BuildFindings("space news", []ExecutedQuery{
		{Query: "latest launches", Answer: "   "},
	})

	assert.Contains(t, findings, "Findings: No answer returned")
}

func TestBuildFindingsFallsBackToTopicText(t *testing.T) {
	assert.Equal(t, "space news", BuildFindings("space news", nil))
}

func TestNormalizeSourceURL(t *testing.T) {
	assert.Equal(t,
		NormalizeSourceURL("https://Example.com/Article/"),
		NormalizeSourceURL("https://example.com/article"))
	assert.Equal(t,
		NormalizeSourceURL("https://example.com/a#section-2"),
		NormalizeSourceURL("https://example.com/a"))
}

func TestDedupSourceURLs(t *testing.T) {
	urls := []string{
		"https://example.com/a",
		"https://example.com/a#fragment",
		"https://example.com/a/",
		"https://example.com/b",
		"",
	}

	deduped := DedupSourceURLs(urls)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, deduped)
}
