// Package llm generates search queries, segment scripts, and episode
// metadata via a chat-completions style API. Every operation asks the model
// for a JSON object (or array) and treats malformed output as an error.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SegmentScript is the narration the model writes for one topic.
type SegmentScript struct {
	Title  string `json:"title"`
	Script string `json:"script"`
}

// EpisodeMetadata is the whole-episode title/description/show-notes.
type EpisodeMetadata struct {
	Title       string `json:"title"`
	ShowNotes   string `json:"show_notes"`
	Description string `json:"description"`
}

// SegmentSummary is the slice of segment data the metadata prompt needs.
type SegmentSummary struct {
	Title           string
	DurationSeconds int
}

// Config configures the LLM client.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	TimeoutMs int
}

// Client wraps the chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 120000
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat error %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// PlanQueries asks for candidate search queries for a topic, given the texts
// of queries already used in past episodes.
func (c *Client) PlanQueries(ctx context.Context, topic string, history []string) ([]string, error) {
	prompt := fmt.Sprintf("Topic: %s\n", topic)
	if len(history) > 0 {
		prompt += fmt.Sprintf("Queries already used in past episodes (do not repeat them):\n- %s\n", strings.Join(history, "\n- "))
	}
	prompt += "Respond with a JSON array of up to 5 fresh search queries."

	content, err := c.complete(ctx,
		"You plan web search queries for a daily audio briefing. Respond with a JSON array of strings only.",
		prompt)
	if err != nil {
		return nil, err
	}

	var queries []string
	if err := json.Unmarshal([]byte(stripFences(content)), &queries); err != nil {
		return nil, fmt.Errorf("failed to parse planned queries: %w", err)
	}
	return queries, nil
}

// WriteSegment turns a topic's findings into a titled narration script sized
// for targetMinutes of speech.
func (c *Client) WriteSegment(ctx context.Context, topic, findings string, sources []string, targetMinutes int) (SegmentScript, error) {
	prompt := fmt.Sprintf(
		"Topic: %s\n\nResearch findings:\n%s\n\nSources:\n%s\n\nWrite a segment of roughly %d minute(s) of spoken narration. Respond with a JSON object {\"title\": ..., \"script\": ...}.",
		topic, findings, strings.Join(sources, "\n"), targetMinutes)

	content, err := c.complete(ctx,
		"You write spoken-word news segments for an audio briefing. Respond with JSON only.",
		prompt)
	if err != nil {
		return SegmentScript{}, err
	}

	var script SegmentScript
	if err := json.Unmarshal([]byte(stripFences(content)), &script); err != nil {
		return SegmentScript{}, fmt.Errorf("failed to parse segment script: %w", err)
	}
	return script, nil
}

// WriteEpisodeMetadata produces the episode title, show notes and description
// from the full transcript and segment list.
func (c *Client) WriteEpisodeMetadata(ctx context.Context, transcript string, segments []SegmentSummary) (EpisodeMetadata, error) {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d. %s (%ds)\n", i+1, s.Title, s.DurationSeconds)
	}
	prompt := fmt.Sprintf(
		"Segments:\n%s\nTranscript:\n%s\n\nRespond with a JSON object {\"title\": ..., \"show_notes\": ..., \"description\": ...}.",
		b.String(), transcript)

	content, err := c.complete(ctx,
		"You write podcast episode metadata. Respond with JSON only.",
		prompt)
	if err != nil {
		return EpisodeMetadata{}, err
	}

	var meta EpisodeMetadata
	if err := json.Unmarshal([]byte(stripFences(content)), &meta); err != nil {
		return EpisodeMetadata{}, fmt.Errorf("failed to parse episode metadata: %w", err)
	}
	return meta, nil
}
