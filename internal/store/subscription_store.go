package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meetapp/internal/domain"
	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) CreateSubscription(ctx context.Context, userID, meetupID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, meetup_id)
		VALUES ($1, $2)
		RETURNING id, user_id, meetup_id, created_at
	`, userID, meetupID).Scan(
		&sub.ID, &sub.UserID, &sub.MeetupID, &sub.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("inserting subscription: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, userID, meetupID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, meetup_id, created_at
		FROM subscriptions WHERE user_id = $1 AND meetup_id = $2
	`, userID, meetupID).Scan(
		&sub.ID, &sub.UserID, &sub.MeetupID, &sub.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying subscription: %w", err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription by id. Deleting an absent id is
// a no-op: the guard rejects unsubscribe-when-absent before this layer runs.
func (s *PostgresStore) DeleteSubscription(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// ListSubscriptionsForUser returns every subscription of the user joined with
// its meetup. Conflict detection needs the full set, not just upcoming rows:
// a meetup that started minutes ago can still overlap one about to start.
func (s *PostgresStore) ListSubscriptionsForUser(ctx context.Context, userID string) ([]domain.SubscriptionWithMeetup, error) {
	return s.querySubscriptionsWithMeetups(ctx, `
		SELECT s.id, s.user_id, s.meetup_id, s.created_at,
		       m.id, m.organizer_id, m.title, m.description, m.location,
		       m.start_time, m.created_at, m.updated_at
		FROM subscriptions s
		JOIN meetups m ON m.id = s.meetup_id
		WHERE s.user_id = $1
		ORDER BY m.start_time ASC, m.id ASC
	`, userID)
}

// ListUpcomingForUser returns the user's subscriptions to meetups that have
// not started yet, ordered by start time with meetup id as the tie-break.
func (s *PostgresStore) ListUpcomingForUser(ctx context.Context, userID string, now time.Time) ([]domain.SubscriptionWithMeetup, error) {
	return s.querySubscriptionsWithMeetups(ctx, `
		SELECT s.id, s.user_id, s.meetup_id, s.created_at,
		       m.id, m.organizer_id, m.title, m.description, m.location,
		       m.start_time, m.created_at, m.updated_at
		FROM subscriptions s
		JOIN meetups m ON m.id = s.meetup_id
		WHERE s.user_id = $1 AND m.start_time > $2
		ORDER BY m.start_time ASC, m.id ASC
	`, userID, now)
}

// DeleteSubscriptionsForMeetup removes every subscription to a meetup and
// returns the deleted rows so the caller can fan out cancellation notices.
func (s *PostgresStore) DeleteSubscriptionsForMeetup(ctx context.Context, meetupID string) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM subscriptions WHERE meetup_id = $1
		RETURNING id, user_id, meetup_id, created_at
	`, meetupID)
	if err != nil {
		return nil, fmt.Errorf("deleting subscriptions for meetup: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.MeetupID, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning deleted subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}

	return subs, nil
}

func (s *PostgresStore) querySubscriptionsWithMeetups(ctx context.Context, query string, args ...any) ([]domain.SubscriptionWithMeetup, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.SubscriptionWithMeetup
	for rows.Next() {
		var sm domain.SubscriptionWithMeetup
		err := rows.Scan(
			&sm.ID, &sm.UserID, &sm.MeetupID, &sm.CreatedAt,
			&sm.Meetup.ID, &sm.Meetup.OrganizerID, &sm.Meetup.Title, &sm.Meetup.Description,
			&sm.Meetup.Location, &sm.Meetup.StartTime, &sm.Meetup.CreatedAt, &sm.Meetup.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sm)
	}

	if subs == nil {
		subs = []domain.SubscriptionWithMeetup{}
	}

	return subs, nil
}
