package store

import (
	"context"
	"errors"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/models"
)

// ErrNotFound is returned when a row does not exist or is not visible to the
// requesting user.
var ErrNotFound = errors.New("not found")

// EpisodeUpdate is a partial update of an episode row. Nil fields are left
// untouched.
type EpisodeUpdate struct {
	Status          *string
	Title           *string
	Transcript      *string
	Description     *string
	ShowNotes       *string
	AudioPath       *string
	CoverImagePath  *string
	CoverPrompt     *string
	DurationSeconds *int
	ErrorMessage    *string
}

// Store is the persistence boundary for episodes, topics, queries, segments,
// sources and schedules. One instance per process, injected into whatever
// needs it; tests use the in-memory backend, production uses Postgres.
type Store interface {
	CreateEpisode(ctx context.Context, userID int64, targetMinutes int) (models.Episode, error)
	GetEpisode(ctx context.Context, userID int64, id int) (models.Episode, error)
	UpdateEpisode(ctx context.Context, userID int64, id int, upd EpisodeUpdate) error
	ListReadyEpisodes(ctx context.Context, userID int64) ([]models.Episode, error)
	MarkUsageRecorded(ctx context.Context, episodeID int) error

	ListActiveTopics(ctx context.Context, userID int64) ([]models.Topic, error)

	InsertTopicQueries(ctx context.Context, rows []models.TopicQuery) error
	ListPriorQueries(ctx context.Context, userID int64, topicID int) ([]models.TopicQuery, error)

	ReplaceSegments(ctx context.Context, episodeID int, rows []models.EpisodeSegment) error
	ListSegments(ctx context.Context, episodeID int) ([]models.EpisodeSegment, error)
	ReplaceSources(ctx context.Context, episodeID int, rows []models.EpisodeSource) error
	ListSources(ctx context.Context, episodeID int) ([]models.EpisodeSource, error)

	ListDueSchedules(ctx context.Context, now time.Time) ([]models.EpisodeSchedule, error)
	// ClaimSchedule advances next_run_at from expected to next in one
	// conditional write. It reports false when another runner got there
	// first, which is what prevents double-firing across replicas.
	ClaimSchedule(ctx context.Context, id int, expected, next time.Time) (bool, error)
	RecordScheduleOutcome(ctx context.Context, id int, ranAt time.Time, status string, lastErr *string) error
	InsertScheduleRun(ctx context.Context, run models.ScheduleRun) error

	Close() error
}

// Open resolves the configured backend once: Postgres when DATABASE_URL is
// set, the in-memory store otherwise.
func Open(cfg config.Config) (Store, error) {
	if cfg.DatabaseURL != "" {
		return OpenPostgres(cfg.DatabaseURL)
	}
	return NewMemory(), nil
}
