package store

import (
	"context"
	"fmt"

	"github.com/example/meetapp/internal/domain"
	"github.com/jackc/pgx/v5"
)

// DeadLetterRecord holds data for inserting a dead-lettered notification job.
type DeadLetterRecord struct {
	JobID         string
	Kind          string
	Payload       []byte
	TotalAttempts int
	LastError     string
}

// InsertDeadLetter stores a notification job that exhausted its retries or
// failed permanently.
func (s *PostgresStore) InsertDeadLetter(ctx context.Context, rec DeadLetterRecord) error {
	var lastErr *string
	if rec.LastError != "" {
		lastErr = &rec.LastError
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO dead_letters (job_id, kind, payload, total_attempts, last_error)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.JobID, rec.Kind, rec.Payload, rec.TotalAttempts, lastErr)
	if err != nil {
		return fmt.Errorf("inserting dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns dead letters filtered by resolution state.
func (s *PostgresStore) ListDeadLetters(ctx context.Context, resolved bool, limit int) ([]domain.DeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}

	condition := "resolved_at IS NULL"
	if resolved {
		condition = "resolved_at IS NOT NULL"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, kind, payload, total_attempts, last_error, created_at, resolved_at, resolved_by
		FROM dead_letters
		WHERE `+condition+`
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying dead letters: %w", err)
	}
	defer rows.Close()

	var letters []domain.DeadLetter
	for rows.Next() {
		var dl domain.DeadLetter
		err := rows.Scan(
			&dl.ID, &dl.JobID, &dl.Kind, &dl.Payload, &dl.TotalAttempts,
			&dl.LastError, &dl.CreatedAt, &dl.ResolvedAt, &dl.ResolvedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning dead letter: %w", err)
		}
		letters = append(letters, dl)
	}

	if letters == nil {
		letters = []domain.DeadLetter{}
	}

	return letters, nil
}

// GetDeadLetter returns a single dead letter by id.
func (s *PostgresStore) GetDeadLetter(ctx context.Context, id string) (*domain.DeadLetter, error) {
	var dl domain.DeadLetter
	err := s.pool.QueryRow(ctx, `
		SELECT id, job_id, kind, payload, total_attempts, last_error, created_at, resolved_at, resolved_by
		FROM dead_letters WHERE id = $1
	`, id).Scan(
		&dl.ID, &dl.JobID, &dl.Kind, &dl.Payload, &dl.TotalAttempts,
		&dl.LastError, &dl.CreatedAt, &dl.ResolvedAt, &dl.ResolvedBy,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying dead letter: %w", err)
	}
	return &dl, nil
}

// ResolveDeadLetter marks a dead letter as handled by an operator.
func (s *PostgresStore) ResolveDeadLetter(ctx context.Context, id, resolvedBy string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE dead_letters SET resolved_at = NOW(), resolved_by = $2
		WHERE id = $1 AND resolved_at IS NULL
	`, id, resolvedBy)
	if err != nil {
		return fmt.Errorf("resolving dead letter: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("dead letter not found or already resolved")
	}
	return nil
}

// CountUnresolvedDeadLetters returns the number of dead letters awaiting an
// operator.
func (s *PostgresStore) CountUnresolvedDeadLetters(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM dead_letters WHERE resolved_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting dead letters: %w", err)
	}
	return count, nil
}
