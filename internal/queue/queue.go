// Package queue implements the durable notification queue on a Redis sorted
// set. The member is the JSON-encoded job and the score is its next attempt
// time in microseconds, so the jobs due at any instant are exactly the score
// range (-inf, now]. Fresh jobs get strictly increasing scores per producer,
// so jobs for one meetup drain in enqueue order; nothing orders jobs across
// meetups.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/example/meetapp/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const notificationQueueKey = "notification_queue"

type Queue struct {
	client *redis.Client
	logger *slog.Logger

	mu        sync.Mutex
	lastScore int64
}

func New(client *redis.Client, logger *slog.Logger) *Queue {
	return &Queue{client: client, logger: logger}
}

// Enqueue appends a job to the queue and returns immediately; delivery
// happens out of band. Zero-valued bookkeeping fields are filled in.
func (q *Queue) Enqueue(ctx context.Context, job *domain.NotificationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Attempt == 0 {
		job.Attempt = 1
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	if job.NextAttemptAt.IsZero() {
		job.NextAttemptAt = q.nextFreshAttempt(job.EnqueuedAt)
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshalling notification job: %w", err)
	}

	err = q.client.ZAdd(ctx, notificationQueueKey, redis.Z{
		Score:  float64(job.NextAttemptAt.UnixMicro()),
		Member: string(raw),
	}).Err()
	if err != nil {
		return fmt.Errorf("queuing notification job: %w", err)
	}

	q.logger.Info("notification job enqueued",
		"job_id", job.ID,
		"kind", job.Kind,
		"meetup_id", job.Meetup.ID,
		"recipient_id", job.Recipient.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// nextFreshAttempt returns enqueuedAt bumped past every score this producer
// handed out so far. Without the bump, jobs enqueued within the same
// microsecond tie on score and drain in member order instead of enqueue
// order. Retries carry their own NextAttemptAt and bypass this, so a future
// retry score never delays fresh jobs.
func (q *Queue) nextFreshAttempt(enqueuedAt time.Time) time.Time {
	score := enqueuedAt.UnixMicro()

	q.mu.Lock()
	defer q.mu.Unlock()
	if score <= q.lastScore {
		score = q.lastScore + 1
	}
	q.lastScore = score
	return time.UnixMicro(score).UTC()
}

// Due returns up to limit raw job members whose next attempt time is at or
// before now, oldest first.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	members, err := q.client.ZRangeByScore(ctx, notificationQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(float64(now.UnixMicro()), 'f', -1, 64),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("polling notification queue: %w", err)
	}
	return members, nil
}

// Claim atomically removes a member from the queue. It returns false when
// another consumer already took it.
func (q *Queue) Claim(ctx context.Context, member string) (bool, error) {
	removed, err := q.client.ZRem(ctx, notificationQueueKey, member).Result()
	if err != nil {
		return false, fmt.Errorf("claiming notification job: %w", err)
	}
	return removed > 0, nil
}

// Depth returns the number of jobs currently waiting in the queue.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.ZCard(ctx, notificationQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("reading queue depth: %w", err)
	}
	return depth, nil
}
