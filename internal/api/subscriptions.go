package api

import (
	"net/http"

	"github.com/example/meetapp/internal/ledger"
	"github.com/go-chi/chi/v5"
)

type SubscriptionHandler struct {
	ledger *ledger.Ledger
}

func NewSubscriptionHandler(l *ledger.Ledger) *SubscriptionHandler {
	return &SubscriptionHandler{ledger: l}
}

// List returns the caller's subscriptions to meetups that have not started
// yet, soonest first.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.ledger.ListUpcoming(r.Context(), CallerID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	respondJSON(w, http.StatusOK, subs)
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub, decision, err := h.ledger.Subscribe(r.Context(), CallerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to subscribe, try again")
		return
	}
	if !decision.OK() {
		respondDecision(w, decision)
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	decision, err := h.ledger.Unsubscribe(r.Context(), CallerID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to unsubscribe, try again")
		return
	}
	if !decision.OK() {
		respondDecision(w, decision)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
