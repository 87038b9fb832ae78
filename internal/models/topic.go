package models

import (
	"time"

	"github.com/lib/pq"
)

// Topic is a user's standing interest. The pipeline reads topics but never
// writes them.
type Topic struct {
	ID         int       `db:"id"`
	UserID     int64     `db:"user_id"`
	Text       string    `db:"text"`
	Active     bool      `db:"active"`
	OrderIndex int       `db:"order_index"`
	CreatedAt  time.Time `db:"created_at"`
}

// TopicQuery is one search query executed for a topic during one episode's
// generation. Rows are written once per pipeline run and are immutable
// afterward; they double as the history future freshness selection dedups
// against.
type TopicQuery struct {
	ID        int            `db:"id"`
	TopicID   int            `db:"topic_id"`
	EpisodeID int            `db:"episode_id"`
	Query     string         `db:"query"`
	Answer    string         `db:"answer"`
	Citations pq.StringArray `db:"citations"`
	Position  int            `db:"position"`
	CreatedAt time.Time      `db:"created_at"`
}
