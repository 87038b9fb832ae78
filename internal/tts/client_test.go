package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Store(ctx context.Context, key string, data []byte) (string, error) {
	m.objects[key] = data
	return "mem://" + key, nil
}

func audioPayload(frames int) []byte {
	var data []byte
	for i := 0; i < frames; i++ {
		data = append(data, mp3Frame()...)
	}
	return data
}

func TestSynthesizeDialoguePath(t *testing.T) {
	var gotBody dialogueRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/text-to-dialogue", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("xi-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(audioPayload(100))
	}))
	defer server.Close()

	storage := newMemStorage()
	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, storage)

	result, err := client.Synthesize(context.Background(), Request{
		Turns: []Turn{
			{Voice: "voice-a", Text: "First turn."},
			{Voice: "voice-b", Text: "Second turn."},
		},
		FallbackVoice: "voice-a",
		StorageKey:    "7/1.mp3",
	})
	require.NoError(t, err)

	assert.Equal(t, AttemptDialogue, result.Attempt)
	assert.Equal(t, "7/1.mp3", result.StorageKey)
	assert.Equal(t, "mem://7/1.mp3", result.AudioPath)
	assert.True(t, result.Measured)
	assert.Equal(t, 3, result.DurationSeconds)

	require.Len(t, gotBody.Inputs, 2)
	assert.Equal(t, "voice-b", gotBody.Inputs[1].VoiceID)
	assert.Contains(t, storage.objects, "7/1.mp3")
}

func TestSynthesizeFallsBackToSingleVoice(t *testing.T) {
	var speechPath string
	var gotBody speechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/text-to-dialogue" {
			http.Error(w, "dialogue mode not available", http.StatusBadRequest)
			return
		}
		speechPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(audioPayload(50))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, newMemStorage())

	result, err := client.Synthesize(context.Background(), Request{
		Turns: []Turn{
			{Voice: "voice-a", Text: "First turn."},
			{Voice: "voice-b", Text: "Second turn."},
		},
		FallbackVoice: "voice-a",
	})
	require.NoError(t, err)

	assert.Equal(t, AttemptSingleVoice, result.Attempt)
	assert.Equal(t, "/v1/text-to-speech/voice-a", speechPath)
	// The fallback renders the turns as plain paragraphs.
	assert.Equal(t, "First turn.\n\nSecond turn.", gotBody.Text)
}

func TestSynthesizeGeneratesStorageKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(audioPayload(10))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, newMemStorage())

	result, err := client.Synthesize(context.Background(), Request{
		Turns:         []Turn{{Text: "Hello."}},
		FallbackVoice: "voice-a",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.StorageKey, ".mp3"))
	assert.NotEqual(t, ".mp3", result.StorageKey)
}

func TestSynthesizeFailsWhenBothPathsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, newMemStorage())

	_, err := client.Synthesize(context.Background(), Request{
		Turns:         []Turn{{Text: "Hello."}},
		FallbackVoice: "voice-a",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestSynthesizeRejectsEmptyRequest(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost"}, newMemStorage())
	_, err := client.Synthesize(context.Background(), Request{})
	require.Error(t, err)
}

func TestSynthesizeUnmeasurableAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0x00}, 64))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, newMemStorage())

	result, err := client.Synthesize(context.Background(), Request{
		Turns:         []Turn{{Text: "Hello."}},
		FallbackVoice: "voice-a",
	})
	require.NoError(t, err)
	assert.False(t, result.Measured)
	assert.Equal(t, 0, result.DurationSeconds)
}
