package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"briefcast/internal/feed"
	"briefcast/internal/store"
	"briefcast/pkg/tasks"
)

// Handlers is the thin HTTP surface: observable episode status, the direct
// "generate now" action, the podcast feed, and audio file serving.
type Handlers struct {
	store            store.Store
	asynqClient      tasks.TaskEnqueuer
	baseURL          string
	audioStoragePath string
}

func New(st store.Store, asynqClient tasks.TaskEnqueuer, baseURL, audioStoragePath string) *Handlers {
	return &Handlers{
		store:            st,
		asynqClient:      asynqClient,
		baseURL:          baseURL,
		audioStoragePath: audioStoragePath,
	}
}

// Register attaches all routes.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/users/{userID}/episodes", h.PostEpisode).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID}/episodes/{id}", h.GetEpisode).Methods(http.MethodGet)
	r.HandleFunc("/feed/{userID}", h.GetFeed).Methods(http.MethodGet)
	r.HandleFunc("/audio/{userID}/{filename}", h.ServeAudioFile).Methods(http.MethodGet)
}

func pathUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
}

// GetEpisode returns the episode row as JSON, status included.
func (h *Handlers) GetEpisode(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	episode, err := h.store.GetEpisode(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Episode not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error getting episode %d: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(episode)
}

type postEpisodeRequest struct {
	TargetDurationMinutes int `json:"target_duration_minutes"`
}

// PostEpisode creates a queued episode and enqueues its pipeline job — the
// direct user action path, bypassing the schedule.
func (h *Handlers) PostEpisode(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var req postEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if req.TargetDurationMinutes <= 0 {
		req.TargetDurationMinutes = 10
	}

	topics, err := h.store.ListActiveTopics(r.Context(), userID)
	if err != nil {
		log.Printf("Error loading topics for user %d: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(topics) == 0 {
		http.Error(w, "No active topics", http.StatusUnprocessableEntity)
		return
	}

	episode, err := h.store.CreateEpisode(r.Context(), userID, req.TargetDurationMinutes)
	if err != nil {
		log.Printf("Error creating episode for user %d: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	task, err := tasks.NewGenerateEpisodeTask(userID, episode.ID)
	if err != nil {
		log.Printf("Error creating task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if _, err := h.asynqClient.Enqueue(task); err != nil {
		log.Printf("Error enqueuing task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(episode)
}

// GetFeed serves the user's ready episodes as podcast RSS.
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	episodes, err := h.store.ListReadyEpisodes(r.Context(), userID)
	if err != nil {
		log.Printf("Error getting episodes: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rss, err := feed.GenerateRSS(userID, episodes, h.baseURL, r)
	if err != nil {
		log.Printf("Error generating RSS: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}

func (h *Handlers) ServeAudioFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filePath := filepath.Join(h.audioStoragePath, vars["userID"], vars["filename"])
	http.ServeFile(w, r, filePath)
}
