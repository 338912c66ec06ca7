package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutTemplate(ctx context.Context, t Template) error {
	t.RecomputeTotalPoints()
	sj, err := json.Marshal(t.Sections)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exam_templates (id,title,time_limit_min,passing_score,sections_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, time_limit_min=EXCLUDED.time_limit_min,
			passing_score=EXCLUDED.passing_score, sections_json=EXCLUDED.sections_json`,
		t.ID, t.Title, t.TimeLimitMin, t.PassingScore, string(sj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	t, err := s.GetTemplateFull(ctx, id)
	if err != nil {
		return Template{}, err
	}
	// Strip answer keys when serving to students (parity with in-memory behavior)
	t.StripKeys()
	return t, nil
}

func (s *SQLStore) GetTemplateFull(ctx context.Context, id string) (Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,time_limit_min,passing_score,sections_json,created_at FROM exam_templates WHERE id=$1`, id)
	return scanTemplate(row)
}

func (s *SQLStore) CurrentTemplate(ctx context.Context) (Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,time_limit_min,passing_score,sections_json,created_at FROM exam_templates ORDER BY created_at DESC LIMIT 1`)
	return scanTemplate(row)
}

func scanTemplate(row *sql.Row) (Template, error) {
	var t Template
	var sjson string
	if err := row.Scan(&t.ID, &t.Title, &t.TimeLimitMin, &t.PassingScore, &sjson, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, errors.New("exam template not found")
		}
		return Template{}, err
	}
	if err := json.Unmarshal([]byte(sjson), &t.Sections); err != nil {
		return Template{}, err
	}
	// Stored totals are not trusted.
	t.RecomputeTotalPoints()
	return t, nil
}

func (s *SQLStore) SaveAttempt(ctx context.Context, a Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	scj, err := json.Marshal(a.SectionScores)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exam_attempts
		(id,template_id,student_id,earned_points,max_points,percentage,passed,time_spent_sec,answers_json,section_scores_json,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.TemplateID, a.StudentID, a.EarnedPoints, a.MaxPoints, a.Percentage, a.Passed,
		a.TimeSpentSec, string(aj), string(scj), a.CompletedAt)
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,template_id,student_id,earned_points,max_points,percentage,passed,time_spent_sec,answers_json,section_scores_json,completed_at
		FROM exam_attempts WHERE id=$1`, id)
	return scanAttempt(row.Scan)
}

func (s *SQLStore) ListAttempts(ctx context.Context, studentID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,template_id,student_id,earned_points,max_points,percentage,passed,time_spent_sec,answers_json,section_scores_json,completed_at
		FROM exam_attempts WHERE student_id=$1 ORDER BY completed_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) LatestPassedAttempt(ctx context.Context, studentID, templateID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,template_id,student_id,earned_points,max_points,percentage,passed,time_spent_sec,answers_json,section_scores_json,completed_at
		FROM exam_attempts WHERE student_id=$1 AND template_id=$2 AND passed=$3 ORDER BY completed_at DESC LIMIT 1`,
		studentID, templateID, true)
	return scanAttempt(row.Scan)
}

func scanAttempt(scan func(dest ...any) error) (Attempt, error) {
	var a Attempt
	var ajson, scjson string
	err := scan(&a.ID, &a.TemplateID, &a.StudentID, &a.EarnedPoints, &a.MaxPoints, &a.Percentage,
		&a.Passed, &a.TimeSpentSec, &ajson, &scjson, &a.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, errors.New("attempt not found")
		}
		return Attempt{}, err
	}
	// A row with unreadable JSON is corrupt, not a zero-answer attempt.
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return Attempt{}, fmt.Errorf("attempt %s: answers: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(scjson), &a.SectionScores); err != nil {
		return Attempt{}, fmt.Errorf("attempt %s: section scores: %w", a.ID, err)
	}
	return a, nil
}
