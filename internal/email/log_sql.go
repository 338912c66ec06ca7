package email

import (
	"context"
	"database/sql"
)

type SQLLog struct {
	db *sql.DB
}

func NewSQLLog(db *sql.DB) *SQLLog {
	return &SQLLog{db: db}
}

func (l *SQLLog) Record(ctx context.Context, e LogEntry) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO email_log (student_id,to_addr,subject,body,status,sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.StudentID, e.To, e.Subject, e.Body, e.Status, e.SentAt)
	return err
}

func (l *SQLLog) History(ctx context.Context, studentID string, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if studentID == "" {
		rows, err = l.db.QueryContext(ctx, `SELECT id,student_id,to_addr,subject,body,status,sent_at
			FROM email_log ORDER BY sent_at DESC LIMIT $1`, limit)
	} else {
		rows, err = l.db.QueryContext(ctx, `SELECT id,student_id,to_addr,subject,body,status,sent_at
			FROM email_log WHERE student_id=$1 ORDER BY sent_at DESC LIMIT $2`, studentID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.To, &e.Subject, &e.Body, &e.Status, &e.SentAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
