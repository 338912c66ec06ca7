// Package email sends admin-to-student messages and keeps a history of
// every send. Backends are pluggable: console for offline, SendGrid
// online.
package email

import "context"

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Service sends a single message. Implementations must be safe for
// concurrent use.
type Service interface {
	Send(ctx context.Context, m Message) error
}

// LogEntry is one row of send history.
type LogEntry struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id,omitempty"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Status    string `json:"status"` // sent|failed
	SentAt    int64  `json:"sent_at"`
}

// Log records what was sent, success or not.
type Log interface {
	Record(ctx context.Context, e LogEntry) error
	History(ctx context.Context, studentID string, limit int) ([]LogEntry, error)
}
