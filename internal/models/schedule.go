package models

import "time"

// Schedule run outcomes.
const (
	RunSuccess = "success"
	RunSkipped = "skipped"
	RunFailed  = "failed"
)

// EpisodeSchedule is a user's recurrence rule for automatic episode
// generation. NextRunAt is null exactly when the schedule is inactive.
type EpisodeSchedule struct {
	ID                    int        `db:"id"`
	UserID                int64      `db:"user_id"`
	Frequency             string     `db:"frequency"`
	LocalTimeMinutes      int        `db:"local_time_minutes"`
	Timezone              string     `db:"timezone"`
	TargetDurationMinutes int        `db:"target_duration_minutes"`
	Active                bool       `db:"active"`
	NextRunAt             *time.Time `db:"next_run_at"`
	LastRunAt             *time.Time `db:"last_run_at"`
	LastStatus            *string    `db:"last_status"`
	LastError             *string    `db:"last_error"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// ScheduleRun is an immutable audit record of one scheduler attempt.
type ScheduleRun struct {
	ID         int       `db:"id"`
	ScheduleID int       `db:"schedule_id"`
	RanAt      time.Time `db:"ran_at"`
	Outcome    string    `db:"outcome"`
	Message    string    `db:"message"`
	EpisodeID  *int      `db:"episode_id"`
}
