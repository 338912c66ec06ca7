// Package catalog owns the ordered course modules and per-student
// completion progress that feeds the entitlement resolver.
package catalog

import "context"

type Module struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Level       string `json:"level,omitempty"` // CEFR label: A1, A2, ...
	Description string `json:"description,omitempty"`
}

type Store interface {
	PutModule(ctx context.Context, m Module) error
	ListModules(ctx context.Context) ([]Module, error)
	// CompleteModule is idempotent; re-completing keeps the first timestamp.
	CompleteModule(ctx context.Context, studentID string, moduleID int) error
	CompletedModules(ctx context.Context, studentID string) (map[int]bool, error)
	CompletedCount(ctx context.Context, studentID string) (int, error)
}
