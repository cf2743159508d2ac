// Package guard holds the pure scheduling policy: every decision is computed
// from its arguments alone, with the current time passed in explicitly, so it
// can be evaluated before any store mutation and tested with fixed clocks.
package guard

import (
	"time"

	"github.com/example/meetapp/internal/domain"
)

// Code is a stable policy outcome that the API layer maps to a status code.
type Code string

const (
	Allowed                  Code = "allowed"
	EventNotFound            Code = "event_not_found"
	EventAlreadyHeld         Code = "event_already_held"
	OrganizerCannotSubscribe Code = "organizer_cannot_subscribe"
	DuplicateSubscription    Code = "duplicate_subscription"
	TimeConflict             Code = "time_conflict"
	NotSubscribed            Code = "not_subscribed"
	NotOwner                 Code = "not_owner"
	ConcurrentConflict       Code = "concurrent_conflict"
)

// Decision is the outcome of a guard check. Conflict is populated only for
// TimeConflict, carrying the subscription that blocks the new one.
type Decision struct {
	Code     Code                           `json:"code"`
	Conflict *domain.SubscriptionWithMeetup `json:"conflict,omitempty"`
}

// OK reports whether the checked action may proceed.
func (d Decision) OK() bool {
	return d.Code == Allowed
}

// Guard evaluates subscription policy. Window is the conflict window applied
// to every meetup regardless of how long it actually runs.
type Guard struct {
	window time.Duration
}

// DefaultWindow is the conflict window used when none is configured.
const DefaultWindow = time.Hour

func New(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{window: window}
}

// CanSubscribe decides whether userID may subscribe to meetup given their
// existing subscriptions. Checks run in a fixed order and the first failure
// wins, so user-facing messages are deterministic.
func (g *Guard) CanSubscribe(userID string, meetup *domain.Meetup, existing []domain.SubscriptionWithMeetup, now time.Time) Decision {
	if meetup == nil {
		return Decision{Code: EventNotFound}
	}
	if meetup.Past(now) {
		return Decision{Code: EventAlreadyHeld}
	}
	if meetup.OrganizerID == userID {
		return Decision{Code: OrganizerCannotSubscribe}
	}
	for i := range existing {
		if existing[i].MeetupID == meetup.ID {
			return Decision{Code: DuplicateSubscription}
		}
	}
	for i := range existing {
		if g.overlaps(existing[i].Meetup.StartTime, meetup.StartTime) {
			return Decision{Code: TimeConflict, Conflict: &existing[i]}
		}
	}
	return Decision{Code: Allowed}
}

// CanUnsubscribe decides whether userID may withdraw from meetup. Past
// meetups are frozen: no unsubscribing after the start time.
func (g *Guard) CanUnsubscribe(userID string, meetup *domain.Meetup, sub *domain.Subscription, now time.Time) Decision {
	if meetup == nil {
		return Decision{Code: EventNotFound}
	}
	if meetup.Past(now) {
		return Decision{Code: EventAlreadyHeld}
	}
	if sub == nil {
		return Decision{Code: NotSubscribed}
	}
	return Decision{Code: Allowed}
}

// CanModifyMeetup decides whether actorID may update or cancel meetup.
func (g *Guard) CanModifyMeetup(actorID string, meetup *domain.Meetup, now time.Time) Decision {
	if meetup == nil {
		return Decision{Code: EventNotFound}
	}
	if meetup.Past(now) {
		return Decision{Code: EventAlreadyHeld}
	}
	if meetup.OrganizerID != actorID {
		return Decision{Code: NotOwner}
	}
	return Decision{Code: Allowed}
}

// overlaps reports whether the half-open windows [a, a+w) and [b, b+w)
// intersect. Equal start times always conflict.
func (g *Guard) overlaps(a, b time.Time) bool {
	return a.Before(b.Add(g.window)) && b.Before(a.Add(g.window))
}
