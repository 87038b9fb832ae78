package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"briefcast/internal/config"
	"briefcast/internal/handlers"
	"briefcast/internal/middleware"
	"briefcast/internal/store"
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

	h := handlers.New(st, client, cfg.BaseURL, cfg.AudioDir)
	rl := middleware.NewRateLimiterMiddleware(rate.Limit(2), 5)

	r := mux.NewRouter()
	h.Register(r)
	r.Use(rl.Middleware)

	log.Printf("Starting server on :%s (commit: %s)", cfg.Port, CommitSHA)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
