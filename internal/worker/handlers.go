package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"briefcast/internal/pipeline"
	"briefcast/internal/scheduler"
	"briefcast/pkg/tasks"
)

// TaskHandler dispatches queue jobs to the pipeline and the schedule runner.
type TaskHandler struct {
	pipeline *pipeline.Pipeline
	runner   *scheduler.Runner
}

func NewTaskHandler(p *pipeline.Pipeline, r *scheduler.Runner) *TaskHandler {
	return &TaskHandler{pipeline: p, runner: r}
}

// HandleGenerateEpisodeTask runs the episode pipeline for one job. A
// returned error makes asynq retry the whole job; the pipeline has no
// per-stage checkpoints, so a retry regenerates from scratch.
func (h *TaskHandler) HandleGenerateEpisodeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.GenerateEpisodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	return h.pipeline.Process(ctx, p.UserID, p.EpisodeID)
}

// HandleScheduleTickTask runs one scheduler pass over all due schedules.
func (h *TaskHandler) HandleScheduleTickTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Running schedule tick...")
	return h.runner.RunDue(ctx, time.Now().UTC())
}
