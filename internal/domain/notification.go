package domain

import "time"

// JobKind identifies which notification template a job renders.
type JobKind string

const (
	JobSubscriptionCreated JobKind = "subscription_created"
	JobMeetupCancelled     JobKind = "meetup_cancelled"
)

// MeetupSnapshot is the meetup state captured at enqueue time. Delivery must
// not depend on the mutable store: the meetup may be edited or gone by the
// time the job is processed.
type MeetupSnapshot struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	StartTime     time.Time `json:"start_time"`
	OrganizerName string    `json:"organizer_name"`
}

// UserSnapshot is the user identity captured at enqueue time.
type UserSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NotificationJob is one queued email delivery task. Attempt starts at 1 and
// is incremented on every requeue; a job is never sent more than MaxAttempts
// times before it is dead-lettered.
type NotificationJob struct {
	ID            string         `json:"id"`
	Kind          JobKind        `json:"kind"`
	Meetup        MeetupSnapshot `json:"meetup"`
	Recipient     UserSnapshot   `json:"recipient"`
	Subscriber    *UserSnapshot  `json:"subscriber,omitempty"`
	Attempt       int            `json:"attempt"`
	MaxAttempts   int            `json:"max_attempts"`
	EnqueuedAt    time.Time      `json:"enqueued_at"`
	NextAttemptAt time.Time      `json:"next_attempt_at"`
}
