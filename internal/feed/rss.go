package feed

import (
	"fmt"
	"net/http"
	"time"

	"github.com/eduncan911/podcast"

	"briefcast/internal/models"
)

func getBaseURL(configured string, r *http.Request) string {
	if configured != "" {
		return configured
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if r.Header.Get("X-Forwarded-Proto") != "" {
			scheme = r.Header.Get("X-Forwarded-Proto")
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GenerateRSS renders a user's ready episodes as a podcast feed.
func GenerateRSS(userID int64, episodes []models.Episode, configuredBaseURL string, r *http.Request) (string, error) {
	baseURL := getBaseURL(configuredBaseURL, r)

	p := podcast.New(
		"Your Daily Briefing",
		fmt.Sprintf("%s/feed/%d", baseURL, userID),
		"Personalized audio briefings generated from your topics.",
		&time.Time{}, &time.Time{},
	)

	for _, episode := range episodes {
		title := fmt.Sprintf("Episode %d", episode.Number)
		if episode.Title != nil {
			title = *episode.Title
		}
		description := title
		if episode.Description != nil && *episode.Description != "" {
			description = *episode.Description
		}

		item := podcast.Item{
			Title:       title,
			Description: description,
		}
		pubDate := episode.CreatedAt
		item.PubDate = &pubDate
		if episode.DurationSeconds != nil {
			item.AddDuration(int64(*episode.DurationSeconds))
		}
		item.AddEnclosure(fmt.Sprintf("%s/audio/%d/%d.mp3", baseURL, episode.UserID, episode.ID), podcast.MP3, 0)
		if _, err := p.AddItem(item); err != nil {
			return "", err
		}
	}

	return p.String(), nil
}
