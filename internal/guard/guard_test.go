package guard

import (
	"testing"
	"time"

	"github.com/example/meetapp/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func meetupAt(id, organizerID string, start time.Time) *domain.Meetup {
	return &domain.Meetup{
		ID:          id,
		OrganizerID: organizerID,
		Title:       "meetup " + id,
		StartTime:   start,
	}
}

func subscriptionTo(m *domain.Meetup, userID string) domain.SubscriptionWithMeetup {
	return domain.SubscriptionWithMeetup{
		Subscription: domain.Subscription{
			ID:       "sub-" + m.ID,
			UserID:   userID,
			MeetupID: m.ID,
		},
		Meetup: *m,
	}
}

func TestCanSubscribe(t *testing.T) {
	g := New(time.Hour)

	upcoming := meetupAt("m1", "organizer", testNow.Add(time.Hour))
	overlapping := meetupAt("m2", "organizer", testNow.Add(90*time.Minute))
	backToBack := meetupAt("m3", "organizer", upcoming.StartTime.Add(time.Hour))

	tests := []struct {
		name     string
		userID   string
		meetup   *domain.Meetup
		existing []domain.SubscriptionWithMeetup
		now      time.Time
		want     Code
	}{
		{
			name:   "missing meetup",
			userID: "u1",
			meetup: nil,
			now:    testNow,
			want:   EventNotFound,
		},
		{
			name:   "meetup in the past",
			userID: "u1",
			meetup: meetupAt("m1", "organizer", testNow.Add(-time.Minute)),
			now:    testNow,
			want:   EventAlreadyHeld,
		},
		{
			name:   "meetup starting exactly now is held",
			userID: "u1",
			meetup: meetupAt("m1", "organizer", testNow),
			now:    testNow,
			want:   EventAlreadyHeld,
		},
		{
			name:   "organizer subscribing to own meetup",
			userID: "organizer",
			meetup: upcoming,
			now:    testNow,
			want:   OrganizerCannotSubscribe,
		},
		{
			name:     "already subscribed",
			userID:   "u1",
			meetup:   upcoming,
			existing: []domain.SubscriptionWithMeetup{subscriptionTo(upcoming, "u1")},
			now:      testNow,
			want:     DuplicateSubscription,
		},
		{
			name:     "overlapping subscription",
			userID:   "u1",
			meetup:   overlapping,
			existing: []domain.SubscriptionWithMeetup{subscriptionTo(upcoming, "u1")},
			now:      testNow,
			want:     TimeConflict,
		},
		{
			name:     "equal start times conflict",
			userID:   "u1",
			meetup:   meetupAt("m4", "other", upcoming.StartTime),
			existing: []domain.SubscriptionWithMeetup{subscriptionTo(upcoming, "u1")},
			now:      testNow,
			want:     TimeConflict,
		},
		{
			name:     "back-to-back meetups do not conflict",
			userID:   "u1",
			meetup:   backToBack,
			existing: []domain.SubscriptionWithMeetup{subscriptionTo(upcoming, "u1")},
			now:      testNow,
			want:     Allowed,
		},
		{
			name:   "no existing subscriptions",
			userID: "u1",
			meetup: upcoming,
			now:    testNow,
			want:   Allowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.CanSubscribe(tt.userID, tt.meetup, tt.existing, tt.now)
			if d.Code != tt.want {
				t.Errorf("CanSubscribe() = %q, want %q", d.Code, tt.want)
			}
		})
	}
}

func TestCanSubscribe_ConflictCarriesEvidence(t *testing.T) {
	g := New(time.Hour)

	held := meetupAt("m1", "organizer", testNow.Add(time.Hour))
	candidate := meetupAt("m2", "organizer", testNow.Add(90*time.Minute))

	d := g.CanSubscribe("u1", candidate, []domain.SubscriptionWithMeetup{subscriptionTo(held, "u1")}, testNow)
	if d.Code != TimeConflict {
		t.Fatalf("expected TimeConflict, got %q", d.Code)
	}
	if d.Conflict == nil {
		t.Fatal("TimeConflict decision must carry the conflicting subscription")
	}
	if d.Conflict.MeetupID != "m1" {
		t.Errorf("conflicting meetup = %q, want %q", d.Conflict.MeetupID, "m1")
	}
}

func TestCanSubscribe_ConflictIsSymmetric(t *testing.T) {
	g := New(time.Hour)

	a := meetupAt("a", "org", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	b := meetupAt("b", "org", time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC))

	if d := g.CanSubscribe("u1", b, []domain.SubscriptionWithMeetup{subscriptionTo(a, "u1")}, testNow); d.Code != TimeConflict {
		t.Errorf("a then b: got %q, want %q", d.Code, TimeConflict)
	}
	if d := g.CanSubscribe("u1", a, []domain.SubscriptionWithMeetup{subscriptionTo(b, "u1")}, testNow); d.Code != TimeConflict {
		t.Errorf("b then a: got %q, want %q", d.Code, TimeConflict)
	}
}

func TestCanSubscribe_ChecksOrder(t *testing.T) {
	g := New(time.Hour)

	// A past meetup organized by the caller with a duplicate subscription:
	// the past check must win.
	past := meetupAt("m1", "u1", testNow.Add(-time.Hour))
	existing := []domain.SubscriptionWithMeetup{subscriptionTo(past, "u1")}

	if d := g.CanSubscribe("u1", past, existing, testNow); d.Code != EventAlreadyHeld {
		t.Errorf("got %q, want %q", d.Code, EventAlreadyHeld)
	}
}

func TestCanUnsubscribe(t *testing.T) {
	g := New(time.Hour)

	upcoming := meetupAt("m1", "organizer", testNow.Add(time.Hour))
	sub := &domain.Subscription{ID: "s1", UserID: "u1", MeetupID: "m1"}

	tests := []struct {
		name   string
		meetup *domain.Meetup
		sub    *domain.Subscription
		want   Code
	}{
		{"missing meetup", nil, sub, EventNotFound},
		{"past meetup is frozen", meetupAt("m1", "organizer", testNow.Add(-time.Hour)), sub, EventAlreadyHeld},
		{"not subscribed", upcoming, nil, NotSubscribed},
		{"subscribed to upcoming meetup", upcoming, sub, Allowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.CanUnsubscribe("u1", tt.meetup, tt.sub, testNow)
			if d.Code != tt.want {
				t.Errorf("CanUnsubscribe() = %q, want %q", d.Code, tt.want)
			}
		})
	}
}

func TestCanModifyMeetup(t *testing.T) {
	g := New(time.Hour)

	upcoming := meetupAt("m1", "organizer", testNow.Add(time.Hour))

	tests := []struct {
		name    string
		actorID string
		meetup  *domain.Meetup
		want    Code
	}{
		{"missing meetup", "organizer", nil, EventNotFound},
		{"past meetup", "organizer", meetupAt("m1", "organizer", testNow.Add(-time.Second)), EventAlreadyHeld},
		{"not the organizer", "u2", upcoming, NotOwner},
		{"organizer of upcoming meetup", "organizer", upcoming, Allowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.CanModifyMeetup(tt.actorID, tt.meetup, testNow)
			if d.Code != tt.want {
				t.Errorf("CanModifyMeetup() = %q, want %q", d.Code, tt.want)
			}
		})
	}
}

func TestOverlaps_HalfOpenBoundary(t *testing.T) {
	g := New(time.Hour)

	a := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		b    time.Time
		want bool
	}{
		{"identical starts", a, true},
		{"30 minutes later", a.Add(30 * time.Minute), true},
		{"one second before the window closes", a.Add(time.Hour - time.Second), true},
		{"exactly back to back", a.Add(time.Hour), false},
		{"well after", a.Add(2 * time.Hour), false},
		{"exactly one window earlier", a.Add(-time.Hour), false},
		{"30 minutes earlier", a.Add(-30 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.overlaps(a, tt.b); got != tt.want {
				t.Errorf("overlaps(%v, %v) = %v, want %v", a, tt.b, got, tt.want)
			}
			// Overlap is symmetric.
			if got := g.overlaps(tt.b, a); got != tt.want {
				t.Errorf("overlaps(%v, %v) = %v, want %v", tt.b, a, got, tt.want)
			}
		})
	}
}
