package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"briefcast/internal/models"
	"briefcast/internal/store"
	"briefcast/pkg/tasks"
)

// Entitlements is the billing boundary: it rejects episode creation when the
// user's plan does not cover it.
type Entitlements interface {
	EnsureCanCreateEpisode(ctx context.Context, userID int64, durationMinutes int) error
}

// AllowAll grants every request. Stand-in wiring for deployments without a
// billing system.
type AllowAll struct{}

func (AllowAll) EnsureCanCreateEpisode(ctx context.Context, userID int64, durationMinutes int) error {
	return nil
}

// Runner processes due schedules: it claims each one, checks topics and
// entitlement, creates the episode, enqueues the pipeline job, and records
// the outcome. Failed and skipped runs are not retried before the next
// natural slot; the claim already moved next_run_at forward.
type Runner struct {
	store    store.Store
	enqueuer tasks.TaskEnqueuer
	billing  Entitlements

	inFlight atomic.Bool
}

func NewRunner(st store.Store, enqueuer tasks.TaskEnqueuer, billing Entitlements) *Runner {
	return &Runner{store: st, enqueuer: enqueuer, billing: billing}
}

// RunDue processes every schedule due at now, sequentially. Overlapping
// calls within one process return immediately; across processes the
// per-schedule claim is what prevents double-firing.
func (r *Runner) RunDue(ctx context.Context, now time.Time) error {
	if !r.inFlight.CompareAndSwap(false, true) {
		log.Println("Schedule tick already in flight, skipping")
		return nil
	}
	defer r.inFlight.Store(false)

	due, err := r.store.ListDueSchedules(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due schedules: %w", err)
	}

	for _, schedule := range due {
		if err := r.runOne(ctx, schedule, now); err != nil {
			log.Printf("schedule %d: %v", schedule.ID, err)
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, schedule models.EpisodeSchedule, now time.Time) error {
	next, err := NextRunAt(Frequency(schedule.Frequency), schedule.LocalTimeMinutes, schedule.Timezone, now)
	if err != nil {
		return fmt.Errorf("failed to compute next run: %w", err)
	}
	// NextRunAt returns now itself when we're inside today's window; in
	// that case the claim must still move the pointer past this tick.
	if !next.After(now) {
		interval, ierr := IntervalDays(Frequency(schedule.Frequency))
		if ierr != nil {
			return ierr
		}
		next = next.AddDate(0, 0, interval)
	}

	// Claim before any side effect: a concurrent runner loses the
	// conditional update and leaves this schedule alone.
	claimed, err := r.store.ClaimSchedule(ctx, schedule.ID, *schedule.NextRunAt, next)
	if err != nil {
		return fmt.Errorf("failed to claim schedule: %w", err)
	}
	if !claimed {
		log.Printf("Schedule %d already claimed by another runner", schedule.ID)
		return nil
	}

	outcome, message, episodeID := r.fire(ctx, schedule)

	var lastErr *string
	if outcome != models.RunSuccess {
		lastErr = &message
	}
	if err := r.store.RecordScheduleOutcome(ctx, schedule.ID, now, outcome, lastErr); err != nil {
		log.Printf("failed to record outcome for schedule %d: %v", schedule.ID, err)
	}
	if err := r.store.InsertScheduleRun(ctx, models.ScheduleRun{
		ScheduleID: schedule.ID,
		RanAt:      now,
		Outcome:    outcome,
		Message:    message,
		EpisodeID:  episodeID,
	}); err != nil {
		log.Printf("failed to insert run for schedule %d: %v", schedule.ID, err)
	}

	log.Printf("Schedule %d: %s (%s), next run at %s", schedule.ID, outcome, message, next.UTC().Format(time.RFC3339))
	return nil
}

// fire performs one attempt: topic check, entitlement check, episode
// creation, job enqueue. It never creates an episode on a skipped or failed
// attempt.
func (r *Runner) fire(ctx context.Context, schedule models.EpisodeSchedule) (outcome, message string, episodeID *int) {
	topics, err := r.store.ListActiveTopics(ctx, schedule.UserID)
	if err != nil {
		return models.RunFailed, fmt.Sprintf("failed to load topics: %v", err), nil
	}
	if len(topics) == 0 {
		return models.RunSkipped, "no active topics", nil
	}

	if err := r.billing.EnsureCanCreateEpisode(ctx, schedule.UserID, schedule.TargetDurationMinutes); err != nil {
		return models.RunFailed, err.Error(), nil
	}

	episode, err := r.store.CreateEpisode(ctx, schedule.UserID, schedule.TargetDurationMinutes)
	if err != nil {
		return models.RunFailed, fmt.Sprintf("failed to create episode: %v", err), nil
	}

	task, err := tasks.NewGenerateEpisodeTask(schedule.UserID, episode.ID)
	if err != nil {
		return models.RunFailed, fmt.Sprintf("failed to create task: %v", err), &episode.ID
	}
	if _, err := r.enqueuer.Enqueue(task); err != nil {
		return models.RunFailed, fmt.Sprintf("failed to enqueue task: %v", err), &episode.ID
	}

	return models.RunSuccess, fmt.Sprintf("episode %d enqueued", episode.ID), &episode.ID
}
