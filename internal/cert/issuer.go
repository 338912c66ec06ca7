// Package cert issues exam certificates. Issuance is gated on a passed
// attempt; rendering is the frontend's problem, this package only owns
// the metadata.
package cert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/keeleklass/keeleklass/internal/exam"
)

var ErrNotPassed = errors.New("no passing attempt")

type Certificate struct {
	ID               string `json:"id"`
	StudentID        string `json:"student_id"`
	TemplateID       string `json:"exam_template_id"`
	ScorePercent     int    `json:"score_percent"`
	CompletedModules int    `json:"completed_modules"`
	IssuedAt         int64  `json:"issued_at"`
}

// Store is what the issuer needs from the rest of the platform.
type Store interface {
	LatestPassedAttempt(ctx context.Context, studentID, templateID string) (exam.Attempt, error)
	CompletedModuleCount(ctx context.Context, studentID string) (int, error)
	PutCertificate(ctx context.Context, c Certificate) error
	GetCertificate(ctx context.Context, studentID, templateID string) (Certificate, error)
}

type Issuer struct {
	store Store
	now   func() time.Time
}

func New(store Store, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{store: store, now: now}
}

// Issue returns the student's certificate for the template, creating it
// on first call. Requires a passed attempt; repeated calls return the
// already-issued certificate unchanged.
func (i *Issuer) Issue(ctx context.Context, studentID, templateID string) (Certificate, error) {
	if c, err := i.store.GetCertificate(ctx, studentID, templateID); err == nil {
		return c, nil
	}
	a, err := i.store.LatestPassedAttempt(ctx, studentID, templateID)
	if err != nil {
		return Certificate{}, ErrNotPassed
	}
	if !exam.EligibleForCertificate(a) {
		return Certificate{}, ErrNotPassed
	}
	n, err := i.store.CompletedModuleCount(ctx, studentID)
	if err != nil {
		n = 0 // informational only; a passed attempt still certifies
	}
	c := Certificate{
		ID:               uuid.NewString(),
		StudentID:        studentID,
		TemplateID:       templateID,
		ScorePercent:     a.Percentage,
		CompletedModules: n,
		IssuedAt:         i.now().Unix(),
	}
	if err := i.store.PutCertificate(ctx, c); err != nil {
		return Certificate{}, err
	}
	return c, nil
}
