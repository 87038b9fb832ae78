package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"briefcast/internal/models"
)

// Memory is an in-process Store backend. It backs tests and lets the
// services run without a configured database.
type Memory struct {
	mu sync.Mutex

	episodes  map[int]models.Episode
	topics    map[int]models.Topic
	queries   []models.TopicQuery
	segments  map[int][]models.EpisodeSegment
	sources   map[int][]models.EpisodeSource
	schedules map[int]models.EpisodeSchedule
	runs      []models.ScheduleRun

	nextEpisodeID  int
	nextTopicID    int
	nextQueryID    int
	nextScheduleID int
	nextRunID      int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		episodes:  make(map[int]models.Episode),
		topics:    make(map[int]models.Topic),
		segments:  make(map[int][]models.EpisodeSegment),
		sources:   make(map[int][]models.EpisodeSource),
		schedules: make(map[int]models.EpisodeSchedule),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateEpisode(ctx context.Context, userID int64, targetMinutes int) (models.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	number := 1
	for _, e := range m.episodes {
		if e.UserID == userID && e.Number >= number {
			number = e.Number + 1
		}
	}

	m.nextEpisodeID++
	now := time.Now().UTC()
	episode := models.Episode{
		ID:                    m.nextEpisodeID,
		UserID:                userID,
		Number:                number,
		Status:                models.StatusQueued,
		TargetDurationMinutes: targetMinutes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	m.episodes[episode.ID] = episode
	return episode, nil
}

func (m *Memory) GetEpisode(ctx context.Context, userID int64, id int) (models.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	episode, ok := m.episodes[id]
	if !ok || episode.UserID != userID {
		return models.Episode{}, ErrNotFound
	}
	return episode, nil
}

func (m *Memory) UpdateEpisode(ctx context.Context, userID int64, id int, upd EpisodeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	episode, ok := m.episodes[id]
	if !ok || episode.UserID != userID {
		return ErrNotFound
	}
	if upd.Status != nil {
		episode.Status = *upd.Status
	}
	if upd.Title != nil {
		episode.Title = upd.Title
	}
	if upd.Transcript != nil {
		episode.Transcript = upd.Transcript
	}
	if upd.Description != nil {
		episode.Description = upd.Description
	}
	if upd.ShowNotes != nil {
		episode.ShowNotes = upd.ShowNotes
	}
	if upd.AudioPath != nil {
		episode.AudioPath = upd.AudioPath
	}
	if upd.CoverImagePath != nil {
		episode.CoverImagePath = upd.CoverImagePath
	}
	if upd.CoverPrompt != nil {
		episode.CoverPrompt = upd.CoverPrompt
	}
	if upd.DurationSeconds != nil {
		episode.DurationSeconds = upd.DurationSeconds
	}
	if upd.ErrorMessage != nil {
		episode.ErrorMessage = upd.ErrorMessage
	}
	episode.UpdatedAt = time.Now().UTC()
	m.episodes[id] = episode
	return nil
}

func (m *Memory) ListReadyEpisodes(ctx context.Context, userID int64) ([]models.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var episodes []models.Episode
	for _, e := range m.episodes {
		if e.UserID == userID && e.Status == models.StatusReady {
			episodes = append(episodes, e)
		}
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Number > episodes[j].Number })
	return episodes, nil
}

func (m *Memory) MarkUsageRecorded(ctx context.Context, episodeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	episode, ok := m.episodes[episodeID]
	if !ok {
		return ErrNotFound
	}
	episode.UsageRecorded = true
	m.episodes[episodeID] = episode
	return nil
}

// AddTopic seeds a topic row. Test helper; the pipeline never writes topics.
func (m *Memory) AddTopic(t models.Topic) models.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTopicID++
	t.ID = m.nextTopicID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.topics[t.ID] = t
	return t
}

func (m *Memory) ListActiveTopics(ctx context.Context, userID int64) ([]models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var topics []models.Topic
	for _, t := range m.topics {
		if t.UserID == userID && t.Active {
			topics = append(topics, t)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].OrderIndex < topics[j].OrderIndex })
	return topics, nil
}

func (m *Memory) InsertTopicQueries(ctx context.Context, rows []models.TopicQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, q := range rows {
		m.nextQueryID++
		q.ID = m.nextQueryID
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		m.queries = append(m.queries, q)
	}
	return nil
}

func (m *Memory) ListPriorQueries(ctx context.Context, userID int64, topicID int) ([]models.TopicQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var queries []models.TopicQuery
	for _, q := range m.queries {
		if q.TopicID == topicID {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

func (m *Memory) ReplaceSegments(ctx context.Context, episodeID int, rows []models.EpisodeSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := make([]models.EpisodeSegment, len(rows))
	copy(replaced, rows)
	for i := range replaced {
		replaced[i].EpisodeID = episodeID
		replaced[i].ID = i + 1
	}
	m.segments[episodeID] = replaced
	return nil
}

func (m *Memory) ListSegments(ctx context.Context, episodeID int) ([]models.EpisodeSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	segments := make([]models.EpisodeSegment, len(m.segments[episodeID]))
	copy(segments, m.segments[episodeID])
	sort.Slice(segments, func(i, j int) bool { return segments[i].OrderIndex < segments[j].OrderIndex })
	return segments, nil
}

func (m *Memory) ReplaceSources(ctx context.Context, episodeID int, rows []models.EpisodeSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := make([]models.EpisodeSource, len(rows))
	copy(replaced, rows)
	for i := range replaced {
		replaced[i].EpisodeID = episodeID
		replaced[i].ID = i + 1
	}
	m.sources[episodeID] = replaced
	return nil
}

func (m *Memory) ListSources(ctx context.Context, episodeID int) ([]models.EpisodeSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make([]models.EpisodeSource, len(m.sources[episodeID]))
	copy(sources, m.sources[episodeID])
	return sources, nil
}

// AddSchedule seeds a schedule row. Test helper; schedule CRUD lives outside
// this core.
func (m *Memory) AddSchedule(s models.EpisodeSchedule) models.EpisodeSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextScheduleID++
	s.ID = m.nextScheduleID
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.schedules[s.ID] = s
	return s
}

// GetSchedule returns a schedule by id. Test helper.
func (m *Memory) GetSchedule(id int) (models.EpisodeSchedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	return s, ok
}

// ScheduleRuns returns all recorded runs. Test helper.
func (m *Memory) ScheduleRuns() []models.ScheduleRun {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]models.ScheduleRun, len(m.runs))
	copy(runs, m.runs)
	return runs
}

func (m *Memory) ListDueSchedules(ctx context.Context, now time.Time) ([]models.EpisodeSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []models.EpisodeSchedule
	for _, s := range m.schedules {
		if s.Active && s.NextRunAt != nil && !s.NextRunAt.After(now) {
			due = append(due, s)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(*due[j].NextRunAt) })
	return due, nil
}

func (m *Memory) ClaimSchedule(ctx context.Context, id int, expected, next time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok || s.NextRunAt == nil || !s.NextRunAt.Equal(expected) {
		return false, nil
	}
	nextCopy := next
	s.NextRunAt = &nextCopy
	s.UpdatedAt = time.Now().UTC()
	m.schedules[id] = s
	return true, nil
}

func (m *Memory) RecordScheduleOutcome(ctx context.Context, id int, ranAt time.Time, status string, lastErr *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return ErrNotFound
	}
	ranCopy := ranAt
	s.LastRunAt = &ranCopy
	statusCopy := status
	s.LastStatus = &statusCopy
	s.LastError = lastErr
	s.UpdatedAt = time.Now().UTC()
	m.schedules[id] = s
	return nil
}

func (m *Memory) InsertScheduleRun(ctx context.Context, run models.ScheduleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRunID++
	run.ID = m.nextRunID
	m.runs = append(m.runs, run)
	return nil
}
