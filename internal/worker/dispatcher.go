package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/meetapp/internal/domain"
	"github.com/example/meetapp/internal/queue"
	"github.com/example/meetapp/internal/store"
)

// Dispatcher polls the notification queue for due jobs and hands them to the
// worker pool. It is the single logical consumer; claiming through the queue
// keeps parallel instances from processing the same job twice.
type Dispatcher struct {
	queue        *queue.Queue
	pool         *Pool
	deadLetters  DeadLetters
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
	done         chan struct{}
}

func NewDispatcher(q *queue.Queue, pool *Pool, deadLetters DeadLetters, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:        q,
		pool:         pool,
		deadLetters:  deadLetters,
		logger:       logger,
		pollInterval: 100 * time.Millisecond,
		batchSize:    10,
		done:         make(chan struct{}),
	}
}

// Start begins the polling loop. It runs until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)
	d.logger.Info("notification dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

// Done is closed once Start has returned. The pool's jobs channel must not
// be closed until then: a poll still in flight submits to it.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) poll(ctx context.Context) {
	members, err := d.queue.Due(ctx, time.Now(), d.batchSize)
	if err != nil {
		d.logger.Error("failed to poll notification queue", "error", err)
		return
	}

	for _, member := range members {
		claimed, err := d.queue.Claim(ctx, member)
		if err != nil {
			d.logger.Error("failed to claim notification job", "error", err)
			continue
		}
		if !claimed {
			// Another dispatcher instance took this job.
			continue
		}

		var job domain.NotificationJob
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			// A member that does not decode can never be delivered; park it
			// where an operator can see it instead of retrying forever.
			d.logger.Error("malformed notification job", "error", err)
			// The payload column is JSONB, so the undecodable member is
			// wrapped rather than stored raw.
			payload, _ := json.Marshal(map[string]string{"raw": member})
			rec := store.DeadLetterRecord{
				Kind:      "malformed",
				Payload:   payload,
				LastError: err.Error(),
			}
			if dlErr := d.deadLetters.InsertDeadLetter(ctx, rec); dlErr != nil {
				d.logger.Error("failed to dead-letter malformed job", "error", dlErr)
			}
			continue
		}

		d.pool.Submit(job)
	}
}
