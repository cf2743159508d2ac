package domain

import (
	"encoding/json"
	"time"
)

type DeadLetter struct {
	ID            string          `json:"id"`
	JobID         string          `json:"job_id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	TotalAttempts int             `json:"total_attempts"`
	LastError     *string         `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy    *string         `json:"resolved_by,omitempty"`
}
