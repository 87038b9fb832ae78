package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefcast/internal/models"
	"briefcast/internal/store"
	"briefcast/pkg/tasks"
)

type mockTaskEnqueuer struct {
	enqueuedTasks []*asynq.Task
}

func (m *mockTaskEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.enqueuedTasks = append(m.enqueuedTasks, task)
	return &asynq.TaskInfo{ID: "test-task-id", Queue: "default"}, nil
}

func newTestRouter(mem *store.Memory, enqueuer *mockTaskEnqueuer) *mux.Router {
	h := New(mem, enqueuer, "https://briefs.example.com", "audio")
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func TestGetEpisode(t *testing.T) {
	mem := store.NewMemory()
	episode, err := mem.CreateEpisode(context.Background(), 7, 10)
	require.NoError(t, err)

	router := newTestRouter(mem, &mockTaskEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/users/7/episodes/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Episode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, episode.ID, got.ID)
	assert.Equal(t, models.StatusQueued, got.Status)
}

func TestGetEpisodeNotFound(t *testing.T) {
	router := newTestRouter(store.NewMemory(), &mockTaskEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/users/7/episodes/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEpisodeWrongUser(t *testing.T) {
	mem := store.NewMemory()
	_, err := mem.CreateEpisode(context.Background(), 7, 10)
	require.NoError(t, err)

	router := newTestRouter(mem, &mockTaskEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/users/8/episodes/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostEpisodeEnqueuesJob(t *testing.T) {
	mem := store.NewMemory()
	mem.AddTopic(models.Topic{UserID: 7, Text: "space", Active: true})
	enqueuer := &mockTaskEnqueuer{}
	router := newTestRouter(mem, enqueuer)

	req := httptest.NewRequest(http.MethodPost, "/users/7/episodes",
		strings.NewReader(`{"target_duration_minutes": 15}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.enqueuedTasks, 1)
	assert.Equal(t, tasks.TypeGenerateEpisode, enqueuer.enqueuedTasks[0].Type())

	var payload tasks.GenerateEpisodeTaskPayload
	require.NoError(t, json.Unmarshal(enqueuer.enqueuedTasks[0].Payload(), &payload))
	assert.Equal(t, int64(7), payload.UserID)

	episode, err := mem.GetEpisode(context.Background(), 7, payload.EpisodeID)
	require.NoError(t, err)
	assert.Equal(t, 15, episode.TargetDurationMinutes)
}

func TestPostEpisodeRequiresTopics(t *testing.T) {
	enqueuer := &mockTaskEnqueuer{}
	router := newTestRouter(store.NewMemory(), enqueuer)

	req := httptest.NewRequest(http.MethodPost, "/users/7/episodes",
		strings.NewReader(`{"target_duration_minutes": 15}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, enqueuer.enqueuedTasks)
}

func TestGetFeed(t *testing.T) {
	mem := store.NewMemory()
	episode, err := mem.CreateEpisode(context.Background(), 7, 10)
	require.NoError(t, err)

	status := models.StatusReady
	title := "Morning Briefing"
	duration := 600
	require.NoError(t, mem.UpdateEpisode(context.Background(), 7, episode.ID, store.EpisodeUpdate{
		Status: &status, Title: &title, DurationSeconds: &duration,
	}))

	router := newTestRouter(mem, &mockTaskEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/feed/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Morning Briefing")
	assert.Contains(t, rec.Body.String(), "https://briefs.example.com/audio/7/1.mp3")
}

func TestGetFeedOmitsUnfinishedEpisodes(t *testing.T) {
	mem := store.NewMemory()
	_, err := mem.CreateEpisode(context.Background(), 7, 10)
	require.NoError(t, err)

	router := newTestRouter(mem, &mockTaskEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/feed/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<item>")
}
