// Package tts synthesizes narration audio. The primary path is a multi-turn
// dialogue request (one entry per narration turn, each tagged with a voice);
// on any failure it falls back to a single-voice request built from the same
// text. The fallback is modeled as an explicit attempt sequence rather than
// exception-driven control flow, so each path is testable on its own.
package tts

import "context"

// Attempt identifies which synthesis path produced a result.
type Attempt string

const (
	AttemptDialogue    Attempt = "dialogue"
	AttemptSingleVoice Attempt = "single_voice"
)

// Turn is one voice-tagged narration turn.
type Turn struct {
	Voice string
	Text  string
}

// Request describes one synthesis call.
type Request struct {
	Turns []Turn
	// FallbackVoice is used by the single-voice path (and for any turn
	// without its own voice).
	FallbackVoice string
	// StorageKey, when set, fixes where the audio is stored so re-synthesis
	// overwrites instead of accumulating objects. Empty means
	// provider-generated.
	StorageKey string
}

// Result is the outcome of a synthesis call. DurationSeconds is only
// meaningful when Measured is true; otherwise the caller must estimate from
// word count.
type Result struct {
	AudioPath       string
	StorageKey      string
	DurationSeconds int
	Measured        bool
	Attempt         Attempt
}

// Synthesizer is the contract the pipeline depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
}

// Storage persists synthesized audio bytes under a key and returns the
// location callers hand out. The production implementation lives outside
// this core (object storage upload/signing); FileStorage covers local runs.
type Storage interface {
	Store(ctx context.Context, key string, data []byte) (string, error)
}
