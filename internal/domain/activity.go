package domain

import "time"

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID        int64
	Username  string
	Action    string
	CreatedAt time.Time
}
