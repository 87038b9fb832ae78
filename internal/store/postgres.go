package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver

	"briefcast/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the relational Store backend.
type Postgres struct {
	db *sqlx.DB
}

// OpenPostgres connects to the database and ensures the schema exists.
func OpenPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	p := &Postgres{db: db}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return p, nil
}

// NewPostgresFromDB wraps an existing connection. Used by tests with sqlmock.
func NewPostgresFromDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateEpisode(ctx context.Context, userID int64, targetMinutes int) (models.Episode, error) {
	episode := models.Episode{}
	err := p.db.GetContext(ctx, &episode, `
		INSERT INTO episodes (user_id, number, status, target_duration_minutes)
		VALUES ($1, (SELECT COALESCE(MAX(number), 0) + 1 FROM episodes WHERE user_id = $1), 'queued', $2)
		RETURNING *`,
		userID, targetMinutes)
	return episode, err
}

func (p *Postgres) GetEpisode(ctx context.Context, userID int64, id int) (models.Episode, error) {
	episode := models.Episode{}
	err := p.db.GetContext(ctx, &episode, "SELECT * FROM episodes WHERE id = $1 AND user_id = $2", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return episode, ErrNotFound
	}
	return episode, err
}

func (p *Postgres) UpdateEpisode(ctx context.Context, userID int64, id int, upd EpisodeUpdate) error {
	set := []string{"updated_at = NOW()"}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Transcript != nil {
		add("transcript", *upd.Transcript)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ShowNotes != nil {
		add("show_notes", *upd.ShowNotes)
	}
	if upd.AudioPath != nil {
		add("audio_path", *upd.AudioPath)
	}
	if upd.CoverImagePath != nil {
		add("cover_image_path", *upd.CoverImagePath)
	}
	if upd.CoverPrompt != nil {
		add("cover_prompt", *upd.CoverPrompt)
	}
	if upd.DurationSeconds != nil {
		add("duration_seconds", *upd.DurationSeconds)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}

	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE episodes SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(set, ", "), len(args)-1, len(args))

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListReadyEpisodes(ctx context.Context, userID int64) ([]models.Episode, error) {
	var episodes []models.Episode
	err := p.db.SelectContext(ctx, &episodes, `
		SELECT * FROM episodes
		WHERE user_id = $1 AND status = 'ready'
		ORDER BY number DESC`, userID)
	return episodes, err
}

func (p *Postgres) MarkUsageRecorded(ctx context.Context, episodeID int) error {
	_, err := p.db.ExecContext(ctx, "UPDATE episodes SET usage_recorded = TRUE, updated_at = NOW() WHERE id = $1", episodeID)
	return err
}

func (p *Postgres) ListActiveTopics(ctx context.Context, userID int64) ([]models.Topic, error) {
	var topics []models.Topic
	err := p.db.SelectContext(ctx, &topics, `
		SELECT * FROM topics
		WHERE user_id = $1 AND active = TRUE
		ORDER BY order_index`, userID)
	return topics, err
}

func (p *Postgres) InsertTopicQueries(ctx context.Context, rows []models.TopicQuery) error {
	for _, q := range rows {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO topic_queries (topic_id, episode_id, query, answer, citations, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			q.TopicID, q.EpisodeID, q.Query, q.Answer, q.Citations, q.Position)
		if err != nil {
			return fmt.Errorf("failed to insert topic query: %w", err)
		}
	}
	return nil
}

func (p *Postgres) ListPriorQueries(ctx context.Context, userID int64, topicID int) ([]models.TopicQuery, error) {
	var queries []models.TopicQuery
	err := p.db.SelectContext(ctx, &queries, `
		SELECT tq.* FROM topic_queries tq
		JOIN topics t ON t.id = tq.topic_id
		WHERE t.user_id = $1 AND tq.topic_id = $2
		ORDER BY tq.id`, userID, topicID)
	return queries, err
}

func (p *Postgres) ReplaceSegments(ctx context.Context, episodeID int, rows []models.EpisodeSegment) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM episode_sources WHERE episode_id = $1 AND segment_id IS NOT NULL", episodeID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM episode_segments WHERE episode_id = $1", episodeID); err != nil {
		return err
	}
	for _, s := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO episode_segments (episode_id, order_index, title, findings, sources, script, audio_path, start_time_seconds, duration_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			episodeID, s.OrderIndex, s.Title, s.Findings, s.Sources, s.Script, s.AudioPath, s.StartTimeSeconds, s.DurationSeconds)
		if err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", s.OrderIndex, err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListSegments(ctx context.Context, episodeID int) ([]models.EpisodeSegment, error) {
	var segments []models.EpisodeSegment
	err := p.db.SelectContext(ctx, &segments, `
		SELECT * FROM episode_segments
		WHERE episode_id = $1
		ORDER BY order_index`, episodeID)
	return segments, err
}

func (p *Postgres) ReplaceSources(ctx context.Context, episodeID int, rows []models.EpisodeSource) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM episode_sources WHERE episode_id = $1 AND segment_id IS NULL", episodeID); err != nil {
		return err
	}
	for _, s := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO episode_sources (episode_id, segment_id, url)
			VALUES ($1, $2, $3)`,
			episodeID, s.SegmentID, s.URL)
		if err != nil {
			return fmt.Errorf("failed to insert source: %w", err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListSources(ctx context.Context, episodeID int) ([]models.EpisodeSource, error) {
	var sources []models.EpisodeSource
	err := p.db.SelectContext(ctx, &sources, "SELECT * FROM episode_sources WHERE episode_id = $1 ORDER BY id", episodeID)
	return sources, err
}

func (p *Postgres) ListDueSchedules(ctx context.Context, now time.Time) ([]models.EpisodeSchedule, error) {
	var schedules []models.EpisodeSchedule
	err := p.db.SelectContext(ctx, &schedules, `
		SELECT * FROM episode_schedules
		WHERE active = TRUE AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at`, now)
	return schedules, err
}

func (p *Postgres) ClaimSchedule(ctx context.Context, id int, expected, next time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE episode_schedules
		SET next_run_at = $1, updated_at = NOW()
		WHERE id = $2 AND next_run_at = $3`,
		next, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) RecordScheduleOutcome(ctx context.Context, id int, ranAt time.Time, status string, lastErr *string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE episode_schedules
		SET last_run_at = $1, last_status = $2, last_error = $3, updated_at = NOW()
		WHERE id = $4`,
		ranAt, status, lastErr, id)
	return err
}

func (p *Postgres) InsertScheduleRun(ctx context.Context, run models.ScheduleRun) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO schedule_runs (schedule_id, ran_at, outcome, message, episode_id)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ScheduleID, run.RanAt, run.Outcome, run.Message, run.EpisodeID)
	return err
}
