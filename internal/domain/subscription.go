package domain

import "time"

type Subscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MeetupID  string    `json:"meetup_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionWithMeetup pairs a subscription with the meetup it belongs to.
// Conflict detection and the upcoming-subscriptions listing both need the
// meetup's start time next to the subscription row.
type SubscriptionWithMeetup struct {
	Subscription
	Meetup Meetup `json:"meetup"`
}
