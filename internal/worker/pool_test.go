package worker

import (
	"context"
	"testing"
)

func TestPool_StopDrainsBufferedJobs(t *testing.T) {
	mailer := &scriptedMailer{}
	q := &memRequeuer{}
	dl := &memDeadLetters{}
	n := newTestNotifier(mailer, q, dl)

	pool := NewPool(2, n, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	const submitted = 5
	for i := 0; i < submitted; i++ {
		pool.Submit(testJob(1))
	}

	// Every submitted job was already claimed off the queue; cancelling the
	// context must not abandon any of them.
	cancel()
	pool.Stop()

	mailer.mu.Lock()
	sent := len(mailer.sent)
	mailer.mu.Unlock()

	total := sent + len(q.jobs) + len(dl.recs)
	if total != submitted {
		t.Fatalf("accounted for %d of %d jobs (sent=%d requeued=%d dead-lettered=%d)",
			total, submitted, sent, len(q.jobs), len(dl.recs))
	}
}
