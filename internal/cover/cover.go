// Package cover generates episode cover art. Cover generation is best
// effort: the pipeline swallows its failures and ships the episode without a
// cover.
package cover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Image is a generated cover.
type Image struct {
	Path       string
	StorageKey string
}

// Storage persists image bytes under a key (same contract as audio storage).
type Storage interface {
	Store(ctx context.Context, key string, data []byte) (string, error)
}

// Config configures the cover client.
type Config struct {
	BaseURL   string
	APIKey    string
	TimeoutMs int
}

// Client calls an image generation API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	storage Storage
}

func NewClient(cfg Config, storage Storage) *Client {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 120000
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		storage: storage,
	}
}

// BuildPrompt composes the image prompt from the episode title and segment
// titles. It is computed before generation so a failed generation still
// leaves the prompt behind for later backfill.
func BuildPrompt(title string, segmentTitles []string) string {
	prompt := fmt.Sprintf("Podcast cover art for an audio briefing titled %q.", title)
	if len(segmentTitles) > 0 {
		prompt += " Topics: " + strings.Join(segmentTitles, ", ") + "."
	}
	return prompt + " Bold, minimal, no text."
}

type imageRequest struct {
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate requests an image for the prompt and stores it under a key
// derived from the episode, so regeneration overwrites.
func (c *Client) Generate(ctx context.Context, userID int64, episodeID int, prompt string) (Image, error) {
	body, err := json.Marshal(imageRequest{
		Prompt:         prompt,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return Image{}, fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Image{}, fmt.Errorf("image error %d: %s", resp.StatusCode, string(errBody))
	}

	var parsed imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Image{}, fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return Image{}, fmt.Errorf("image response has no data")
	}

	raw, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image payload: %w", err)
	}

	key := fmt.Sprintf("%d/%d-cover.png", userID, episodeID)
	path, err := c.storage.Store(ctx, key, raw)
	if err != nil {
		return Image{}, fmt.Errorf("failed to store cover image: %w", err)
	}

	return Image{Path: path, StorageKey: key}, nil
}
