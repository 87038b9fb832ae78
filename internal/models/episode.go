package models

import (
	"time"

	"github.com/lib/pq"
)

// Episode statuses, in pipeline order. An episode only ever moves forward
// through these, or into StatusFailed from any non-terminal state.
const (
	StatusQueued            = "queued"
	StatusRewritingQueries  = "rewriting_queries"
	StatusRetrievingContent = "retrieving_content"
	StatusGeneratingScript  = "generating_script"
	StatusGeneratingAudio   = "generating_audio"
	StatusReady             = "ready"
	StatusFailed            = "failed"
)

// Episode is one generated audio briefing.
type Episode struct {
	ID                    int        `db:"id"`
	UserID                int64      `db:"user_id"`
	Number                int        `db:"number"`
	Title                 *string    `db:"title"`
	Status                string     `db:"status"`
	TargetDurationMinutes int        `db:"target_duration_minutes"`
	DurationSeconds       *int       `db:"duration_seconds"`
	AudioPath             *string    `db:"audio_path"`
	CoverImagePath        *string    `db:"cover_image_path"`
	CoverPrompt           *string    `db:"cover_prompt"`
	Transcript            *string    `db:"transcript"`
	Description           *string    `db:"description"`
	ShowNotes             *string    `db:"show_notes"`
	ErrorMessage          *string    `db:"error_message"`
	UsageRecorded         bool       `db:"usage_recorded"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// EpisodeSegment is one topic's contribution to an episode. Segments are
// ordered by OrderIndex; StartTimeSeconds of segment n equals the sum of
// DurationSeconds of segments 0..n-1.
type EpisodeSegment struct {
	ID               int            `db:"id"`
	EpisodeID        int            `db:"episode_id"`
	OrderIndex       int            `db:"order_index"`
	Title            string         `db:"title"`
	Findings         string         `db:"findings"`
	Sources          pq.StringArray `db:"sources"`
	Script           string         `db:"script"`
	AudioPath        *string        `db:"audio_path"`
	StartTimeSeconds int            `db:"start_time_seconds"`
	DurationSeconds  int            `db:"duration_seconds"`
}

// EpisodeSource is a deduplicated citation attached to an episode (SegmentID
// nil) or to a single segment. Uniqueness is (segment or episode level,
// normalized URL).
type EpisodeSource struct {
	ID        int    `db:"id"`
	EpisodeID int    `db:"episode_id"`
	SegmentID *int   `db:"segment_id"`
	URL       string `db:"url"`
}
