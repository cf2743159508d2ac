package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meetapp/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CreateMeetupParams carries the fields needed to insert a meetup.
type CreateMeetupParams struct {
	OrganizerID string
	Title       string
	Description string
	Location    string
	StartTime   time.Time
}

const meetupColumns = "id, organizer_id, title, description, location, start_time, created_at, updated_at"

func scanMeetup(row pgx.Row, m *domain.Meetup) error {
	return row.Scan(
		&m.ID, &m.OrganizerID, &m.Title, &m.Description, &m.Location,
		&m.StartTime, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (s *PostgresStore) CreateMeetup(ctx context.Context, p CreateMeetupParams) (*domain.Meetup, error) {
	var meetup domain.Meetup
	err := scanMeetup(s.pool.QueryRow(ctx, `
		INSERT INTO meetups (organizer_id, title, description, location, start_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+meetupColumns+`
	`, p.OrganizerID, p.Title, p.Description, p.Location, p.StartTime), &meetup)
	if err != nil {
		return nil, fmt.Errorf("inserting meetup: %w", err)
	}
	return &meetup, nil
}

func (s *PostgresStore) GetMeetup(ctx context.Context, id string) (*domain.Meetup, error) {
	var meetup domain.Meetup
	err := scanMeetup(s.pool.QueryRow(ctx, `
		SELECT `+meetupColumns+` FROM meetups WHERE id = $1
	`, id), &meetup)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying meetup: %w", err)
	}
	return &meetup, nil
}

func (s *PostgresStore) UpdateMeetup(ctx context.Context, id string, p CreateMeetupParams) (*domain.Meetup, error) {
	var meetup domain.Meetup
	err := scanMeetup(s.pool.QueryRow(ctx, `
		UPDATE meetups SET title = $2, description = $3, location = $4, start_time = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+meetupColumns+`
	`, id, p.Title, p.Description, p.Location, p.StartTime), &meetup)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("updating meetup: %w", err)
	}
	return &meetup, nil
}

func (s *PostgresStore) DeleteMeetup(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM meetups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting meetup: %w", err)
	}
	return nil
}

// ListMeetups returns meetups, optionally restricted to the calendar day of
// `day`, newest page first. Pages are 1-based.
func (s *PostgresStore) ListMeetups(ctx context.Context, day *time.Time, page, perPage int) ([]domain.Meetup, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	query := `SELECT ` + meetupColumns + ` FROM meetups`
	args := []any{}
	argIdx := 1

	if day != nil {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		end := start.AddDate(0, 0, 1)
		query += fmt.Sprintf(" WHERE start_time >= $%d AND start_time < $%d", argIdx, argIdx+1)
		args = append(args, start, end)
		argIdx += 2
	}

	query += fmt.Sprintf(" ORDER BY start_time ASC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, perPage, (page-1)*perPage)

	return s.queryMeetups(ctx, query, args...)
}

// ListMeetupsByOrganizer returns the meetups a user organizes, most recent
// start time first.
func (s *PostgresStore) ListMeetupsByOrganizer(ctx context.Context, organizerID string, page, perPage int) ([]domain.Meetup, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	return s.queryMeetups(ctx, `
		SELECT `+meetupColumns+` FROM meetups
		WHERE organizer_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, organizerID, perPage, (page-1)*perPage)
}

func (s *PostgresStore) queryMeetups(ctx context.Context, query string, args ...any) ([]domain.Meetup, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying meetups: %w", err)
	}
	defer rows.Close()

	var meetups []domain.Meetup
	for rows.Next() {
		var m domain.Meetup
		if err := scanMeetup(rows, &m); err != nil {
			return nil, fmt.Errorf("scanning meetup: %w", err)
		}
		meetups = append(meetups, m)
	}

	if meetups == nil {
		meetups = []domain.Meetup{}
	}

	return meetups, nil
}
