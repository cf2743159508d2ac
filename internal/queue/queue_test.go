package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/meetapp/internal/domain"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEnqueue_FillsBookkeepingFields(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := &domain.NotificationJob{
		Kind:      domain.JobSubscriptionCreated,
		Meetup:    domain.MeetupSnapshot{ID: "m1", Title: "Go Meetup"},
		Recipient: domain.UserSnapshot{ID: "u1", Email: "org@example.com"},
	}

	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	if job.ID == "" {
		t.Error("Enqueue should assign a job id")
	}
	if job.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", job.Attempt)
	}
	if job.EnqueuedAt.IsZero() || job.NextAttemptAt.IsZero() {
		t.Error("Enqueue should set EnqueuedAt and NextAttemptAt")
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth() error: %v", err)
	}
	if depth != 1 {
		t.Errorf("Depth = %d, want 1", depth)
	}
}

func TestDue_RespectsNextAttemptAt(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	ready := &domain.NotificationJob{
		Kind:          domain.JobSubscriptionCreated,
		EnqueuedAt:    now.Add(-time.Minute),
		NextAttemptAt: now.Add(-time.Minute),
	}
	deferred := &domain.NotificationJob{
		Kind:          domain.JobMeetupCancelled,
		EnqueuedAt:    now.Add(-time.Minute),
		NextAttemptAt: now.Add(30 * time.Second),
	}

	if err := q.Enqueue(ctx, ready); err != nil {
		t.Fatalf("Enqueue(ready) error: %v", err)
	}
	if err := q.Enqueue(ctx, deferred); err != nil {
		t.Fatalf("Enqueue(deferred) error: %v", err)
	}

	members, err := q.Due(ctx, now, 10)
	if err != nil {
		t.Fatalf("Due() error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("Due returned %d jobs, want 1", len(members))
	}

	var got domain.NotificationJob
	if err := json.Unmarshal([]byte(members[0]), &got); err != nil {
		t.Fatalf("unmarshalling member: %v", err)
	}
	if got.ID != ready.ID {
		t.Errorf("due job = %q, want %q", got.ID, ready.ID)
	}

	// Once the deferred job's time arrives it becomes due too.
	members, err = q.Due(ctx, now.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("Due() error: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("Due returned %d jobs, want 2", len(members))
	}
}

func TestDue_OldestFirst(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		job := &domain.NotificationJob{
			Kind:          domain.JobMeetupCancelled,
			Meetup:        domain.MeetupSnapshot{ID: "m1"},
			EnqueuedAt:    base.Add(time.Duration(i) * time.Second),
			NextAttemptAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
		ids = append(ids, job.ID)
	}

	members, err := q.Due(ctx, base.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("Due() error: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("Due returned %d jobs, want 3", len(members))
	}

	for i, member := range members {
		var got domain.NotificationJob
		if err := json.Unmarshal([]byte(member), &got); err != nil {
			t.Fatalf("unmarshalling member %d: %v", i, err)
		}
		if got.ID != ids[i] {
			t.Errorf("position %d: job %q, want %q (enqueue order)", i, got.ID, ids[i])
		}
	}
}

func TestEnqueue_SameInstantKeepsOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// All jobs share one EnqueuedAt; the cancellation fan-out enqueues many
	// jobs in a tight loop like this.
	var ids []string
	for i := 0; i < 5; i++ {
		job := &domain.NotificationJob{
			Kind:       domain.JobMeetupCancelled,
			Meetup:     domain.MeetupSnapshot{ID: "m1"},
			EnqueuedAt: at,
		}
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
		ids = append(ids, job.ID)
	}

	members, err := q.Due(ctx, at.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("Due() error: %v", err)
	}
	if len(members) != 5 {
		t.Fatalf("Due returned %d jobs, want 5", len(members))
	}

	for i, member := range members {
		var got domain.NotificationJob
		if err := json.Unmarshal([]byte(member), &got); err != nil {
			t.Fatalf("unmarshalling member %d: %v", i, err)
		}
		if got.ID != ids[i] {
			t.Errorf("position %d: job %q, want %q (enqueue order)", i, got.ID, ids[i])
		}
	}
}

func TestClaim_OnlyOnce(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := &domain.NotificationJob{Kind: domain.JobSubscriptionCreated}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	members, err := q.Due(ctx, time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatalf("Due() error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("Due returned %d jobs, want 1", len(members))
	}

	ok, err := q.Claim(ctx, members[0])
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if !ok {
		t.Fatal("first claim should succeed")
	}

	ok, err = q.Claim(ctx, members[0])
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if ok {
		t.Error("second claim of the same member should fail")
	}

	depth, _ := q.Depth(ctx)
	if depth != 0 {
		t.Errorf("Depth = %d after claim, want 0", depth)
	}
}
