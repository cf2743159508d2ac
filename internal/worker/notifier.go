package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/meetapp/internal/domain"
	"github.com/example/meetapp/internal/mail"
	"github.com/example/meetapp/internal/store"
)

// Requeuer puts a job back on the queue for a later attempt.
type Requeuer interface {
	Enqueue(ctx context.Context, job *domain.NotificationJob) error
}

// DeadLetters is the terminal sink for jobs that cannot be delivered.
type DeadLetters interface {
	InsertDeadLetter(ctx context.Context, rec store.DeadLetterRecord) error
}

// RetryPolicy bounds how often and how fast failed deliveries are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the queue defaults: 5 attempts, starting at a
// 30 second delay, doubling up to 10 minutes.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   30 * time.Second,
	MaxDelay:    10 * time.Minute,
}

// Delay returns the backoff before the attempt after `attempt` failed:
// baseDelay doubled per prior attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Notifier processes one claimed notification job at a time: render, send,
// and either acknowledge, requeue with backoff, or dead-letter. Delivery
// failures never reach the request that triggered the job.
type Notifier struct {
	mailer      mail.Mailer
	queue       Requeuer
	deadLetters DeadLetters
	policy      RetryPolicy
	logger      *slog.Logger
	nowFn       func() time.Time
}

func NewNotifier(mailer mail.Mailer, queue Requeuer, deadLetters DeadLetters, policy RetryPolicy, logger *slog.Logger) *Notifier {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy
	}
	return &Notifier{
		mailer:      mailer,
		queue:       queue,
		deadLetters: deadLetters,
		policy:      policy,
		logger:      logger,
		nowFn:       time.Now,
	}
}

// Process handles a job that has already been claimed from the queue.
func (n *Notifier) Process(ctx context.Context, job domain.NotificationJob) {
	msg, err := mail.Render(&job)
	if err != nil {
		n.deadLetter(ctx, job, err)
		return
	}

	err = n.mailer.Send(ctx, msg)
	if err == nil {
		// Acknowledged: the claim already removed the job from the queue.
		n.logger.Info("notification delivered",
			"job_id", job.ID,
			"kind", job.Kind,
			"recipient", job.Recipient.Email,
			"attempt", job.Attempt,
		)
		return
	}

	if mail.IsPermanent(err) {
		n.deadLetter(ctx, job, err)
		return
	}

	if job.Attempt >= n.maxAttempts(job) {
		n.deadLetter(ctx, job, err)
		return
	}

	retry := job
	retry.Attempt++
	retry.NextAttemptAt = n.nowFn().Add(n.policy.Delay(job.Attempt))

	n.logger.Warn("notification delivery failed, retrying",
		"job_id", job.ID,
		"kind", job.Kind,
		"attempt", job.Attempt,
		"next_attempt_at", retry.NextAttemptAt,
		"error", err,
	)

	if qErr := n.queue.Enqueue(ctx, &retry); qErr != nil {
		// Losing the job silently would be worse than parking it.
		n.deadLetter(ctx, job, qErr)
	}
}

func (n *Notifier) maxAttempts(job domain.NotificationJob) int {
	if job.MaxAttempts > 0 {
		return job.MaxAttempts
	}
	return n.policy.MaxAttempts
}

func (n *Notifier) deadLetter(ctx context.Context, job domain.NotificationJob, cause error) {
	payload, err := json.Marshal(job)
	if err != nil {
		payload = []byte("{}")
	}

	rec := store.DeadLetterRecord{
		JobID:         job.ID,
		Kind:          string(job.Kind),
		Payload:       payload,
		TotalAttempts: job.Attempt,
	}
	if cause != nil {
		rec.LastError = cause.Error()
	}

	if err := n.deadLetters.InsertDeadLetter(ctx, rec); err != nil {
		n.logger.Error("failed to insert dead letter",
			"job_id", job.ID, "error", err, "cause", cause)
		return
	}

	n.logger.Error("notification dead-lettered",
		"job_id", job.ID,
		"kind", job.Kind,
		"total_attempts", job.Attempt,
		"cause", cause,
	)
}
