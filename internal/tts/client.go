package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config configures the TTS client.
type Config struct {
	BaseURL   string
	APIKey    string
	ModelID   string
	TimeoutMs int
}

// Client implements Synthesizer against a dialogue-capable TTS API.
type Client struct {
	baseURL string
	apiKey  string
	modelID string
	http    *http.Client
	storage Storage
}

// NewClient creates a TTS client that persists audio via storage.
func NewClient(cfg Config, storage Storage) *Client {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 120000
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		storage: storage,
	}
}

// Synthesize tries the dialogue path first and falls back to single-voice on
// any dialogue failure. A single-voice failure fails the call.
func (c *Client) Synthesize(ctx context.Context, req Request) (Result, error) {
	if len(req.Turns) == 0 {
		return Result{}, fmt.Errorf("synthesize called with no turns")
	}

	key := req.StorageKey
	if key == "" {
		key = uuid.NewString() + ".mp3"
	}

	attempts := []Attempt{AttemptDialogue, AttemptSingleVoice}
	var lastErr error
	for _, attempt := range attempts {
		audio, err := c.request(ctx, attempt, req)
		if err != nil {
			lastErr = err
			if attempt == AttemptDialogue {
				log.Printf("dialogue synthesis failed, falling back to single voice: %v", err)
			}
			continue
		}

		path, err := c.storage.Store(ctx, key, audio)
		if err != nil {
			return Result{}, fmt.Errorf("failed to store audio: %w", err)
		}

		result := Result{
			AudioPath:  path,
			StorageKey: key,
			Attempt:    attempt,
		}
		if seconds, ok := MeasureMP3Seconds(audio); ok {
			result.DurationSeconds = seconds
			result.Measured = true
		}
		return result, nil
	}

	return Result{}, fmt.Errorf("synthesis failed: %w", lastErr)
}

type dialogueInput struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type dialogueRequest struct {
	Inputs  []dialogueInput `json:"inputs"`
	ModelID string          `json:"model_id"`
}

type speechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (c *Client) request(ctx context.Context, attempt Attempt, req Request) ([]byte, error) {
	var url string
	var payload interface{}

	switch attempt {
	case AttemptDialogue:
		inputs := make([]dialogueInput, 0, len(req.Turns))
		for _, t := range req.Turns {
			voice := t.Voice
			if voice == "" {
				voice = req.FallbackVoice
			}
			inputs = append(inputs, dialogueInput{Text: t.Text, VoiceID: voice})
		}
		url = c.baseURL + "/v1/text-to-dialogue"
		payload = dialogueRequest{Inputs: inputs, ModelID: c.modelID}
	case AttemptSingleVoice:
		paragraphs := make([]string, 0, len(req.Turns))
		for _, t := range req.Turns {
			paragraphs = append(paragraphs, t.Text)
		}
		url = fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, req.FallbackVoice)
		payload = speechRequest{Text: strings.Join(paragraphs, "\n\n"), ModelID: c.modelID}
	default:
		return nil, fmt.Errorf("unknown attempt %q", attempt)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts error %d: %s", resp.StatusCode, string(errBody))
	}

	return io.ReadAll(resp.Body)
}
