package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/meetapp/internal/guard"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decisionError is the body returned for policy rejections: a stable code
// the client can branch on, a human message, and the conflicting
// subscription when one exists.
type decisionError struct {
	Code     guard.Code `json:"code"`
	Error    string     `json:"error"`
	Conflict any        `json:"conflict,omitempty"`
}

var decisionMessages = map[guard.Code]string{
	guard.EventNotFound:            "meetup does not exist",
	guard.EventAlreadyHeld:         "meetup has already been held",
	guard.OrganizerCannotSubscribe: "you cannot sign up for a meetup you organize",
	guard.DuplicateSubscription:    "already subscribed",
	guard.TimeConflict:             "you are already registered for a meetup at this time",
	guard.NotSubscribed:            "you are not subscribed to this meetup",
	guard.NotOwner:                 "you do not have permission to modify this meetup",
	guard.ConcurrentConflict:       "conflicting request in flight, try again",
}

func decisionStatus(code guard.Code) int {
	switch code {
	case guard.EventNotFound:
		return http.StatusNotFound
	case guard.NotOwner:
		return http.StatusUnauthorized
	case guard.ConcurrentConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// respondDecision writes the HTTP mapping of a non-OK guard decision.
func respondDecision(w http.ResponseWriter, d guard.Decision) {
	body := decisionError{
		Code:  d.Code,
		Error: decisionMessages[d.Code],
	}
	if d.Conflict != nil {
		body.Conflict = d.Conflict
	}
	respondJSON(w, decisionStatus(d.Code), body)
}
