package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/example/meetapp/internal/guard"
	"github.com/example/meetapp/internal/ledger"
	"github.com/example/meetapp/internal/store"
	"github.com/go-chi/chi/v5"
)

type MeetupHandler struct {
	store  *store.PostgresStore
	guard  *guard.Guard
	ledger *ledger.Ledger
}

func NewMeetupHandler(s *store.PostgresStore, g *guard.Guard, l *ledger.Ledger) *MeetupHandler {
	return &MeetupHandler{store: s, guard: g, ledger: l}
}

type meetupRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
}

func (req *meetupRequest) validate() string {
	switch {
	case req.Title == "":
		return "title is required"
	case req.Description == "":
		return "description is required"
	case req.Location == "":
		return "location is required"
	case req.StartTime.IsZero():
		return "start_time is required"
	}
	return ""
}

func (h *MeetupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req meetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if !req.StartTime.After(time.Now()) {
		respondError(w, http.StatusBadRequest, "cannot create a meetup in the past")
		return
	}

	meetup, err := h.store.CreateMeetup(r.Context(), store.CreateMeetupParams{
		OrganizerID: CallerID(r),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create meetup")
		return
	}

	respondJSON(w, http.StatusCreated, meetup)
}

// List returns meetups, optionally filtered to one calendar day via ?date=.
func (h *MeetupHandler) List(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = &parsed
	}

	meetups, err := h.store.ListMeetups(r.Context(), day, pageParam(r), 10)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list meetups")
		return
	}

	respondJSON(w, http.StatusOK, meetups)
}

func (h *MeetupHandler) Get(w http.ResponseWriter, r *http.Request) {
	meetup, err := h.store.GetMeetup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get meetup")
		return
	}
	if meetup == nil {
		respondError(w, http.StatusNotFound, "meetup not found")
		return
	}

	respondJSON(w, http.StatusOK, meetup)
}

func (h *MeetupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req meetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	meetup, err := h.store.GetMeetup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get meetup")
		return
	}

	if d := h.guard.CanModifyMeetup(CallerID(r), meetup, time.Now()); !d.OK() {
		respondDecision(w, d)
		return
	}
	if !req.StartTime.After(time.Now()) {
		respondError(w, http.StatusBadRequest, "cannot move a meetup into the past")
		return
	}

	updated, err := h.store.UpdateMeetup(r.Context(), meetup.ID, store.CreateMeetupParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update meetup")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete cancels a meetup: the ledger cascades over subscriptions and queues
// one cancellation notice per former subscriber.
func (h *MeetupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	decision, err := h.ledger.CancelMeetup(r.Context(), CallerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to cancel meetup")
		return
	}
	if !decision.OK() {
		respondDecision(w, decision)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Organizing lists the caller's own meetups.
func (h *MeetupHandler) Organizing(w http.ResponseWriter, r *http.Request) {
	meetups, err := h.store.ListMeetupsByOrganizer(r.Context(), CallerID(r), pageParam(r), 10)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list meetups")
		return
	}

	respondJSON(w, http.StatusOK, meetups)
}

func pageParam(r *http.Request) int {
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if n, err := strconv.Atoi(pageStr); err == nil && n > 0 {
			page = n
		}
	}
	return page
}
