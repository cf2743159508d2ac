package domain

import (
	"time"
)

type Meetup struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Past reports whether the meetup has already been held at the given instant.
// It is always derived from a caller-supplied clock, never stored.
func (m *Meetup) Past(now time.Time) bool {
	return !m.StartTime.After(now)
}
