package catalog

import (
	"context"
	"database/sql"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutModule(ctx context.Context, m Module) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO modules (id,title,level,description)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, level=EXCLUDED.level, description=EXCLUDED.description`,
		m.ID, m.Title, m.Level, m.Description)
	return err
}

func (s *SQLStore) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,level,description FROM modules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Module{}
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Title, &m.Level, &m.Description); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) CompleteModule(ctx context.Context, studentID string, moduleID int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO student_progress (student_id,module_id,completed_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (student_id,module_id) DO NOTHING`,
		studentID, moduleID, time.Now().Unix())
	return err
}

func (s *SQLStore) CompletedModules(ctx context.Context, studentID string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT module_id FROM student_progress WHERE student_id=$1`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *SQLStore) CompletedCount(ctx context.Context, studentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_progress WHERE student_id=$1`, studentID).Scan(&n)
	return n, err
}
