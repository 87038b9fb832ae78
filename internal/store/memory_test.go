package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefcast/internal/models"
)

func TestMemoryEpisodeLifecycle(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	first, err := mem.CreateEpisode(ctx, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, models.StatusQueued, first.Status)

	second, err := mem.CreateEpisode(ctx, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Number)

	status := models.StatusReady
	title := "Briefing"
	require.NoError(t, mem.UpdateEpisode(ctx, 7, first.ID, EpisodeUpdate{Status: &status, Title: &title}))

	got, err := mem.GetEpisode(ctx, 7, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Briefing", *got.Title)
	// Untouched fields survive a partial update.
	assert.Equal(t, 10, got.TargetDurationMinutes)

	ready, err := mem.ListReadyEpisodes(ctx, 7)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, first.ID, ready[0].ID)
}

func TestMemoryEpisodeUserScoping(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	episode, err := mem.CreateEpisode(ctx, 7, 10)
	require.NoError(t, err)

	_, err = mem.GetEpisode(ctx, 8, episode.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	status := models.StatusReady
	err = mem.UpdateEpisode(ctx, 8, episode.ID, EpisodeUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReplaceSegmentsIsWholesale(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.ReplaceSegments(ctx, 1, []models.EpisodeSegment{
		{OrderIndex: 0, Title: "old a"},
		{OrderIndex: 1, Title: "old b"},
		{OrderIndex: 2, Title: "old c"},
	}))
	require.NoError(t, mem.ReplaceSegments(ctx, 1, []models.EpisodeSegment{
		{OrderIndex: 0, Title: "new a"},
	}))

	segments, err := mem.ListSegments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "new a", segments[0].Title)
	assert.Equal(t, 1, segments[0].EpisodeID)
}

func TestMemoryClaimSchedule(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	due := time.Date(2026, time.March, 10, 6, 45, 0, 0, time.UTC)
	next := due.AddDate(0, 0, 1)
	schedule := mem.AddSchedule(models.EpisodeSchedule{
		UserID: 7, Frequency: "daily", LocalTimeMinutes: 420, Timezone: "UTC",
		Active: true, NextRunAt: &due,
	})

	claimed, err := mem.ClaimSchedule(ctx, schedule.ID, due, next)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim against the old value loses.
	claimed, err = mem.ClaimSchedule(ctx, schedule.ID, due, next.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, claimed)

	updated, ok := mem.GetSchedule(schedule.ID)
	require.True(t, ok)
	assert.True(t, updated.NextRunAt.Equal(next))
}

func TestMemoryListDueSchedules(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	mem.AddSchedule(models.EpisodeSchedule{UserID: 1, Active: true, NextRunAt: &past})
	mem.AddSchedule(models.EpisodeSchedule{UserID: 2, Active: true, NextRunAt: &future})
	mem.AddSchedule(models.EpisodeSchedule{UserID: 3, Active: false, NextRunAt: &past})
	mem.AddSchedule(models.EpisodeSchedule{UserID: 4, Active: true})

	due, err := mem.ListDueSchedules(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(1), due[0].UserID)
}

func TestMemoryMarkUsageRecorded(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	episode, err := mem.CreateEpisode(ctx, 7, 10)
	require.NoError(t, err)
	require.False(t, episode.UsageRecorded)

	require.NoError(t, mem.MarkUsageRecorded(ctx, episode.ID))

	got, err := mem.GetEpisode(ctx, 7, episode.ID)
	require.NoError(t, err)
	assert.True(t, got.UsageRecorded)
}
