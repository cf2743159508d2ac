package api

import (
	"net/http"

	"github.com/example/meetapp/internal/queue"
	"github.com/example/meetapp/internal/store"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthHandler returns the health check handler.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
		})
	}
}

// OpsHandler exposes operational counters: notification queue depth and
// unresolved dead letters.
type OpsHandler struct {
	queue *queue.Queue
	store *store.PostgresStore
}

func NewOpsHandler(q *queue.Queue, s *store.PostgresStore) *OpsHandler {
	return &OpsHandler{queue: q, store: s}
}

type metricsResponse struct {
	QueueDepth            int64 `json:"queue_depth"`
	UnresolvedDeadLetters int   `json:"unresolved_dead_letters"`
}

func (h *OpsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	depth, err := h.queue.Depth(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue depth")
		return
	}

	deadLetters, err := h.store.CountUnresolvedDeadLetters(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count dead letters")
		return
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		QueueDepth:            depth,
		UnresolvedDeadLetters: deadLetters,
	})
}
