package cert

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keeleklass/keeleklass/internal/exam"
)

// SQLStore reads the attempt and progress tables directly; certificates
// get their own table keyed (student_id, template_id).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) LatestPassedAttempt(ctx context.Context, studentID, templateID string) (exam.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,template_id,student_id,earned_points,max_points,percentage,passed,time_spent_sec,answers_json,completed_at
		FROM exam_attempts WHERE student_id=$1 AND template_id=$2 AND passed=$3 ORDER BY completed_at DESC LIMIT 1`,
		studentID, templateID, true)
	var a exam.Attempt
	var ajson string
	if err := row.Scan(&a.ID, &a.TemplateID, &a.StudentID, &a.EarnedPoints, &a.MaxPoints,
		&a.Percentage, &a.Passed, &a.TimeSpentSec, &ajson, &a.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return exam.Attempt{}, errors.New("attempt not found")
		}
		return exam.Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return exam.Attempt{}, fmt.Errorf("attempt %s: answers: %w", a.ID, err)
	}
	return a, nil
}

func (s *SQLStore) CompletedModuleCount(ctx context.Context, studentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_progress WHERE student_id=$1`, studentID).Scan(&n)
	return n, err
}

func (s *SQLStore) PutCertificate(ctx context.Context, c Certificate) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO certificates
		(id,student_id,template_id,score_percent,completed_modules,issued_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (student_id,template_id) DO NOTHING`,
		c.ID, c.StudentID, c.TemplateID, c.ScorePercent, c.CompletedModules, c.IssuedAt)
	return err
}

func (s *SQLStore) GetCertificate(ctx context.Context, studentID, templateID string) (Certificate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,student_id,template_id,score_percent,completed_modules,issued_at
		FROM certificates WHERE student_id=$1 AND template_id=$2`, studentID, templateID)
	var c Certificate
	if err := row.Scan(&c.ID, &c.StudentID, &c.TemplateID, &c.ScorePercent, &c.CompletedModules, &c.IssuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Certificate{}, errors.New("certificate not found")
		}
		return Certificate{}, err
	}
	return c, nil
}
