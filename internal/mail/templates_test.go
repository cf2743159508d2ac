package mail

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/meetapp/internal/domain"
)

func sampleJob(kind domain.JobKind) *domain.NotificationJob {
	return &domain.NotificationJob{
		ID:   "job-1",
		Kind: kind,
		Meetup: domain.MeetupSnapshot{
			ID:            "m1",
			Title:         "Go Meetup",
			Location:      "Room 4",
			StartTime:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			OrganizerName: "Organizer",
		},
		Recipient:  domain.UserSnapshot{ID: "u1", Name: "Organizer", Email: "org@example.com"},
		Subscriber: &domain.UserSnapshot{ID: "u2", Name: "Attendee", Email: "att@example.com"},
	}
}

func TestRender_SubscriptionCreated(t *testing.T) {
	msg, err := Render(sampleJob(domain.JobSubscriptionCreated))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if msg.To != "org@example.com" {
		t.Errorf("To = %q, want organizer address", msg.To)
	}
	if !strings.Contains(msg.Subject, "Go Meetup") {
		t.Errorf("subject %q should name the meetup", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Attendee") || !strings.Contains(msg.Body, "att@example.com") {
		t.Errorf("body should name the subscriber:\n%s", msg.Body)
	}
}

func TestRender_MeetupCancelled(t *testing.T) {
	job := sampleJob(domain.JobMeetupCancelled)
	job.Recipient = domain.UserSnapshot{ID: "u2", Name: "Attendee", Email: "att@example.com"}
	job.Subscriber = nil

	msg, err := Render(job)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if msg.To != "att@example.com" {
		t.Errorf("To = %q, want subscriber address", msg.To)
	}
	if !strings.Contains(msg.Subject, "cancelled") {
		t.Errorf("subject %q should mention cancellation", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Organizer") {
		t.Errorf("body should name the organizer:\n%s", msg.Body)
	}
}

func TestRender_MalformedJobsArePermanent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.NotificationJob)
	}{
		{"missing recipient email", func(j *domain.NotificationJob) { j.Recipient.Email = "" }},
		{"missing subscriber snapshot", func(j *domain.NotificationJob) { j.Subscriber = nil }},
		{"unknown kind", func(j *domain.NotificationJob) { j.Kind = "mystery" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := sampleJob(domain.JobSubscriptionCreated)
			tt.mutate(job)

			_, err := Render(job)
			if err == nil {
				t.Fatal("Render should fail")
			}
			if !IsPermanent(err) {
				t.Errorf("error %v should be permanent", err)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	plain := errors.New("connection refused")
	if IsPermanent(plain) {
		t.Error("plain errors are transient")
	}
	if !IsPermanent(Permanent(plain)) {
		t.Error("wrapped permanent error not recognized")
	}
	if !IsPermanent(errors.Join(errors.New("outer"), Permanent(plain))) {
		t.Error("permanent error inside a join not recognized")
	}
}
