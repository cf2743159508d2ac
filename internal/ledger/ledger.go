// Package ledger is the authoritative source for which subscriptions exist.
// It runs the guard's policy checks and commits the resulting mutations,
// serializing all subscribe/unsubscribe traffic per user so that check and
// commit form one atomic unit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/meetapp/internal/domain"
	"github.com/example/meetapp/internal/guard"
	"github.com/example/meetapp/internal/store"
)

// Store is the slice of the persistent store the ledger depends on.
type Store interface {
	GetMeetup(ctx context.Context, id string) (*domain.Meetup, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	DeleteMeetup(ctx context.Context, id string) error

	GetSubscription(ctx context.Context, userID, meetupID string) (*domain.Subscription, error)
	CreateSubscription(ctx context.Context, userID, meetupID string) (*domain.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	ListSubscriptionsForUser(ctx context.Context, userID string) ([]domain.SubscriptionWithMeetup, error)
	ListUpcomingForUser(ctx context.Context, userID string, now time.Time) ([]domain.SubscriptionWithMeetup, error)
	DeleteSubscriptionsForMeetup(ctx context.Context, meetupID string) ([]domain.Subscription, error)
}

// Notifier enqueues notification jobs for out-of-band delivery.
type Notifier interface {
	Enqueue(ctx context.Context, job *domain.NotificationJob) error
}

type Ledger struct {
	store       Store
	guard       *guard.Guard
	notifier    Notifier
	logger      *slog.Logger
	maxAttempts int
	nowFn       func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func New(st Store, g *guard.Guard, n Notifier, maxAttempts int, logger *slog.Logger) *Ledger {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &Ledger{
		store:       st,
		guard:       g,
		notifier:    n,
		logger:      logger,
		maxAttempts: maxAttempts,
		nowFn:       time.Now,
		userLocks:   make(map[string]*sync.Mutex),
	}
}

// lockUser acquires the mutual-exclusion scope for one user. Two concurrent
// subscribe calls for the same user must not both observe "no conflict" and
// both commit; different users proceed in parallel.
func (l *Ledger) lockUser(userID string) func() {
	l.mu.Lock()
	m, ok := l.userLocks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.userLocks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ListUpcoming returns the caller's subscriptions to meetups that have not
// started yet, soonest first.
func (l *Ledger) ListUpcoming(ctx context.Context, userID string) ([]domain.SubscriptionWithMeetup, error) {
	return l.store.ListUpcomingForUser(ctx, userID, l.nowFn())
}

// Subscribe commits a new subscription for userID to meetupID. A non-OK
// decision is a policy outcome, not an error; the error return is reserved
// for infrastructure failures.
func (l *Ledger) Subscribe(ctx context.Context, userID, meetupID string) (*domain.Subscription, guard.Decision, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	meetup, err := l.store.GetMeetup(ctx, meetupID)
	if err != nil {
		return nil, guard.Decision{}, fmt.Errorf("loading meetup: %w", err)
	}

	existing, err := l.store.ListSubscriptionsForUser(ctx, userID)
	if err != nil {
		return nil, guard.Decision{}, fmt.Errorf("loading subscriptions: %w", err)
	}

	decision := l.guard.CanSubscribe(userID, meetup, existing, l.nowFn())
	if !decision.OK() {
		return nil, decision, nil
	}

	sub, err := l.store.CreateSubscription(ctx, userID, meetupID)
	if err != nil {
		// The uniqueness constraint is the backstop when another instance
		// committed between our check and this insert.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, guard.Decision{Code: guard.ConcurrentConflict}, nil
		}
		return nil, guard.Decision{}, fmt.Errorf("creating subscription: %w", err)
	}

	job, err := l.subscriptionCreatedJob(ctx, meetup, userID)
	if err == nil {
		err = l.notifier.Enqueue(ctx, job)
	}
	if err != nil {
		// Commit and enqueue are one unit: undo the insert so the caller
		// can retry the whole sequence.
		if delErr := l.store.DeleteSubscription(ctx, sub.ID); delErr != nil {
			l.logger.Error("failed to roll back subscription after enqueue failure",
				"subscription_id", sub.ID, "error", delErr)
		}
		return nil, guard.Decision{}, fmt.Errorf("enqueuing subscription notification: %w", err)
	}

	l.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"user_id", userID,
		"meetup_id", meetupID,
	)
	return sub, decision, nil
}

// Unsubscribe withdraws userID from meetupID. The guard rejects a second
// unsubscribe with NotSubscribed; the delete itself is idempotent.
func (l *Ledger) Unsubscribe(ctx context.Context, userID, meetupID string) (guard.Decision, error) {
	unlock := l.lockUser(userID)
	defer unlock()

	meetup, err := l.store.GetMeetup(ctx, meetupID)
	if err != nil {
		return guard.Decision{}, fmt.Errorf("loading meetup: %w", err)
	}

	sub, err := l.store.GetSubscription(ctx, userID, meetupID)
	if err != nil {
		return guard.Decision{}, fmt.Errorf("loading subscription: %w", err)
	}

	decision := l.guard.CanUnsubscribe(userID, meetup, sub, l.nowFn())
	if !decision.OK() {
		return decision, nil
	}

	if err := l.store.DeleteSubscription(ctx, sub.ID); err != nil {
		return guard.Decision{}, fmt.Errorf("deleting subscription: %w", err)
	}

	l.logger.Info("subscription removed",
		"subscription_id", sub.ID,
		"user_id", userID,
		"meetup_id", meetupID,
	)
	return decision, nil
}

// CancelMeetup deletes a meetup, cascades over its subscriptions, and
// enqueues one cancellation notice per former subscriber. Serialization is
// per user, not per meetup: a Subscribe racing the cancel can commit after
// the cascade delete below and be removed by the store's FK cascade without
// a notice.
func (l *Ledger) CancelMeetup(ctx context.Context, actorID, meetupID string) (guard.Decision, error) {
	meetup, err := l.store.GetMeetup(ctx, meetupID)
	if err != nil {
		return guard.Decision{}, fmt.Errorf("loading meetup: %w", err)
	}

	decision := l.guard.CanModifyMeetup(actorID, meetup, l.nowFn())
	if !decision.OK() {
		return decision, nil
	}

	organizer, err := l.store.GetUser(ctx, meetup.OrganizerID)
	if err != nil {
		return guard.Decision{}, fmt.Errorf("loading organizer: %w", err)
	}

	subs, err := l.store.DeleteSubscriptionsForMeetup(ctx, meetupID)
	if err != nil {
		return guard.Decision{}, fmt.Errorf("deleting subscriptions: %w", err)
	}

	snapshot := meetupSnapshot(meetup, organizer)
	for _, sub := range subs {
		subscriber, err := l.store.GetUser(ctx, sub.UserID)
		if err != nil || subscriber == nil {
			l.logger.Error("failed to load subscriber for cancellation notice",
				"user_id", sub.UserID, "meetup_id", meetupID, "error", err)
			continue
		}

		job := &domain.NotificationJob{
			Kind:        domain.JobMeetupCancelled,
			Meetup:      snapshot,
			Recipient:   userSnapshot(subscriber),
			MaxAttempts: l.maxAttempts,
		}
		if err := l.notifier.Enqueue(ctx, job); err != nil {
			// The cancellation itself must not fail because one notice could
			// not be queued; the gap is visible in the logs.
			l.logger.Error("failed to enqueue cancellation notice",
				"user_id", sub.UserID, "meetup_id", meetupID, "error", err)
		}
	}

	if err := l.store.DeleteMeetup(ctx, meetupID); err != nil {
		return guard.Decision{}, fmt.Errorf("deleting meetup: %w", err)
	}

	l.logger.Info("meetup cancelled",
		"meetup_id", meetupID,
		"organizer_id", actorID,
		"subscribers_notified", len(subs),
	)
	return decision, nil
}

// subscriptionCreatedJob builds the notice sent to the organizer when a user
// subscribes. Both parties are snapshotted so delivery does not depend on
// later store state.
func (l *Ledger) subscriptionCreatedJob(ctx context.Context, meetup *domain.Meetup, subscriberID string) (*domain.NotificationJob, error) {
	organizer, err := l.store.GetUser(ctx, meetup.OrganizerID)
	if err != nil {
		return nil, fmt.Errorf("loading organizer: %w", err)
	}
	if organizer == nil {
		return nil, fmt.Errorf("organizer %s not found", meetup.OrganizerID)
	}

	subscriber, err := l.store.GetUser(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("loading subscriber: %w", err)
	}
	if subscriber == nil {
		return nil, fmt.Errorf("subscriber %s not found", subscriberID)
	}

	sub := userSnapshot(subscriber)
	return &domain.NotificationJob{
		Kind:        domain.JobSubscriptionCreated,
		Meetup:      meetupSnapshot(meetup, organizer),
		Recipient:   userSnapshot(organizer),
		Subscriber:  &sub,
		MaxAttempts: l.maxAttempts,
	}, nil
}

func meetupSnapshot(m *domain.Meetup, organizer *domain.User) domain.MeetupSnapshot {
	s := domain.MeetupSnapshot{
		ID:        m.ID,
		Title:     m.Title,
		Location:  m.Location,
		StartTime: m.StartTime,
	}
	if organizer != nil {
		s.OrganizerName = organizer.Name
	}
	return s
}

func userSnapshot(u *domain.User) domain.UserSnapshot {
	return domain.UserSnapshot{ID: u.ID, Name: u.Name, Email: u.Email}
}
