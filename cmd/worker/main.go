package main

import (
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"briefcast/internal/config"
	"briefcast/internal/cover"
	"briefcast/internal/llm"
	"briefcast/internal/pipeline"
	"briefcast/internal/research"
	"briefcast/internal/scheduler"
	"briefcast/internal/store"
	"briefcast/internal/tts"
	"briefcast/internal/worker"
	"briefcast/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	cfg := config.Load()

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("could not open store: %v", err)
	}
	defer st.Close()

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	storage := tts.FileStorage{Dir: cfg.AudioDir}

	researchClient := research.NewClient(research.Config{
		BaseURL: cfg.ResearchBaseURL,
		APIKey:  cfg.ResearchAPIKey,
	})
	llmClient := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	})
	ttsClient := tts.NewClient(tts.Config{
		BaseURL: cfg.TTSBaseURL,
		APIKey:  cfg.TTSAPIKey,
	}, storage)
	coverClient := cover.NewClient(cover.Config{
		BaseURL: cfg.ImageBaseURL,
		APIKey:  cfg.ImageAPIKey,
	}, storage)

	episodePipeline := pipeline.New(st, researchClient, llmClient, ttsClient, coverClient, cfg.TTSVoices)
	runner := scheduler.NewRunner(st, client, scheduler.AllowAll{})

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Custom retry delay function for exponential backoff
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Minute
				maxDelay := 24 * time.Hour

				// Exponential backoff: 5min, 10min, 20min, 40min, 80min, etc.
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(episodePipeline, runner)

	mux.HandleFunc(tasks.TypeGenerateEpisode, taskHandler.HandleGenerateEpisodeTask)
	mux.HandleFunc(tasks.TypeScheduleTick, taskHandler.HandleScheduleTickTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
