package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateEpisode = "episode:generate"
	TypeScheduleTick    = "schedules:tick"
)

type GenerateEpisodeTaskPayload struct {
	UserID    int64
	EpisodeID int
}

func NewGenerateEpisodeTask(userID int64, episodeID int) (*asynq.Task, error) {
	payload, err := json.Marshal(GenerateEpisodeTaskPayload{
		UserID:    userID,
		EpisodeID: episodeID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateEpisode, payload), nil
}

func NewScheduleTickTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeScheduleTick, nil), nil
}
