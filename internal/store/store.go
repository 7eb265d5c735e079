package store

import (
	"context"
	"time"
)

// Event is one supervisor operation outcome, appended after the operation
// completes. History is advisory: writes are best-effort and never block or
// fail a start/stop.
type Event struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Op      string    `json:"op"`      // start, stop
	Outcome string    `json:"outcome"` // started, already-running, launch-failed, ...
	PID     int       `json:"pid"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"` // UTC
}

// Store is the persistence interface for operation history.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, ev Event) error
	Recent(ctx context.Context, name string, limit int) ([]Event, error)
	Close() error
}
