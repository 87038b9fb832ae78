package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ai news", req.Query)

		json.NewEncoder(w).Encode(Answer{
			Answer:    "Several model releases this week.",
			Citations: []string{"https://example.com/a", "https://example.com/b"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", RequestsPerSecond: 100})

	answer, err := client.Search(context.Background(), "ai news")
	require.NoError(t, err)
	assert.Equal(t, "Several model releases this week.", answer.Answer)
	assert.Len(t, answer.Citations, 2)
}

func TestSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", RequestsPerSecond: 100})

	_, err := client.Search(context.Background(), "ai news")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSearchHonorsContextCancellation(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:1", APIKey: "test-key"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "ai news")
	require.Error(t, err)
}
