// Package scheduler decides when each user's next episode is produced and
// turns due schedules into pipeline jobs.
package scheduler

import (
	"fmt"
	"time"
)

// Window is how far before the target local time the runner may fire, so a
// periodic poll reliably catches the due instant without firing a whole
// cadence interval early.
const Window = 15 * time.Minute

// Frequency is a schedule's recurrence cadence.
type Frequency string

const (
	Daily      Frequency = "daily"
	Every2Days Frequency = "every_2_days"
	Every3Days Frequency = "every_3_days"
	Every4Days Frequency = "every_4_days"
	Every5Days Frequency = "every_5_days"
	Every6Days Frequency = "every_6_days"
	Weekly     Frequency = "weekly"
)

// IntervalDays returns the cadence interval in days.
func IntervalDays(f Frequency) (int, error) {
	switch f {
	case Daily:
		return 1, nil
	case Every2Days:
		return 2, nil
	case Every3Days:
		return 3, nil
	case Every4Days:
		return 4, nil
	case Every5Days:
		return 5, nil
	case Every6Days:
		return 6, nil
	case Weekly:
		return 7, nil
	}
	return 0, fmt.Errorf("unknown frequency %q", f)
}

// NextRunAt computes the next instant a schedule should fire. localMinutes
// is the user's time-of-day in minutes since midnight in tz. Relative to
// today's target time:
//
//   - before the window opens: fire at window open (never early);
//   - inside the window: fire now;
//   - past the target: advance by the cadence interval and fire at that
//     day's window open.
func NextRunAt(f Frequency, localMinutes int, tz string, now time.Time) (time.Time, error) {
	interval, err := IntervalDays(f)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), localMinutes/60, localMinutes%60, 0, 0, loc)
	windowStart := target.Add(-Window)

	switch {
	case now.Before(windowStart):
		return windowStart, nil
	case now.Before(target):
		return now, nil
	default:
		return target.AddDate(0, 0, interval).Add(-Window), nil
	}
}
