package exam

import "context"

// Store is the persistence boundary for templates and attempts. The
// attempt side doubles as the session Sink.
type Store interface {
	PutTemplate(ctx context.Context, t Template) error
	// GetTemplate is student-safe: answer keys stripped, totals recomputed.
	GetTemplate(ctx context.Context, id string) (Template, error)
	// GetTemplateFull keeps answer keys; for sessions and admin export.
	GetTemplateFull(ctx context.Context, id string) (Template, error)
	// CurrentTemplate resolves the template the student should sit next
	// (latest created), with keys intact.
	CurrentTemplate(ctx context.Context) (Template, error)

	SaveAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, studentID string) ([]Attempt, error)
	LatestPassedAttempt(ctx context.Context, studentID, templateID string) (Attempt, error)
}
