package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries every setting the services read from the environment. It is
// resolved once at startup and passed down by constructor; nothing re-reads
// the environment after that.
type Config struct {
	DatabaseURL string // empty selects the in-memory store
	RedisAddr   string

	Port              string
	BaseURL           string
	AudioDir          string
	WorkerConcurrency int

	ResearchBaseURL string
	ResearchAPIKey  string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	TTSBaseURL      string
	TTSAPIKey       string
	TTSDefaultVoice string
	TTSVoices       []string

	ImageBaseURL string
	ImageAPIKey  string
}

// Load reads the configuration from the environment, applying defaults for
// anything unset.
func Load() Config {
	cfg := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       getenv("REDIS_ADDR", "127.0.0.1:6379"),
		Port:            getenv("PORT", "8080"),
		BaseURL:         os.Getenv("BASE_URL"),
		AudioDir:        getenv("AUDIO_DIR", "audio"),
		ResearchBaseURL: getenv("RESEARCH_BASE_URL", "https://api.perplexity.ai"),
		ResearchAPIKey:  os.Getenv("RESEARCH_API_KEY"),
		LLMBaseURL:      getenv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:       os.Getenv("LLM_API_KEY"),
		LLMModel:        getenv("LLM_MODEL", "gpt-4o-mini"),
		TTSBaseURL:      getenv("TTS_BASE_URL", "https://api.elevenlabs.io"),
		TTSAPIKey:       os.Getenv("TTS_API_KEY"),
		TTSDefaultVoice: getenv("TTS_DEFAULT_VOICE", "pMsXgVXv3BLzUgSXRplE"),
		ImageBaseURL:    getenv("IMAGE_BASE_URL", "https://api.openai.com"),
		ImageAPIKey:     os.Getenv("IMAGE_API_KEY"),
	}

	cfg.TTSVoices = []string{cfg.TTSDefaultVoice}
	if v := os.Getenv("TTS_VOICES"); v != "" {
		var voices []string
		for _, voice := range strings.Split(v, ",") {
			if voice = strings.TrimSpace(voice); voice != "" {
				voices = append(voices, voice)
			}
		}
		if len(voices) > 0 {
			cfg.TTSVoices = voices
		}
	}

	cfg.WorkerConcurrency = 1
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerConcurrency = n
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
