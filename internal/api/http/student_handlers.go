package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/keeleklass/keeleklass/internal/rbac"
)

type studentRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Subscription string `json:"subscription_status"`
	Password     string `json:"password,omitempty"` // write-only
	CreatedAt    int64  `json:"created_at,omitempty"`
}

// Admin back-office CRUD over the students table.

func ListStudentsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.QueryContext(r.Context(),
			`SELECT id,name,email,subscription_status,created_at FROM students ORDER BY name`)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		defer rows.Close()
		out := []studentRow{}
		for rows.Next() {
			var s studentRow
			if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Subscription, &s.CreatedAt); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			out = append(out, s)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func GetStudentHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "studentID")
		var s studentRow
		err := db.QueryRowContext(r.Context(),
			`SELECT id,name,email,subscription_status,created_at FROM students WHERE id=$1`, id).
			Scan(&s.ID, &s.Name, &s.Email, &s.Subscription, &s.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "student not found", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

func CreateStudentHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s studentRow
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if s.Name == "" || s.Email == "" || s.Password == "" {
			http.Error(w, "name, email and password required", 400)
			return
		}
		if s.Subscription == "" {
			s.Subscription = "free"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), 12)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		s.ID = uuid.NewString()
		s.CreatedAt = time.Now().Unix()
		_, err = db.ExecContext(r.Context(),
			`INSERT INTO students (id,name,email,password_hash,subscription_status,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, s.Name, s.Email, string(hash), s.Subscription, s.CreatedAt)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		s.Password = ""
		_ = json.NewEncoder(w).Encode(s)
	}
}

func UpdateStudentHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "studentID")
		var s studentRow
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if s.Name == "" || s.Email == "" {
			http.Error(w, "name and email required", 400)
			return
		}
		if s.Subscription == "" {
			s.Subscription = "free"
		}
		var res sql.Result
		var err error
		if s.Password != "" {
			var hash []byte
			hash, err = bcrypt.GenerateFromPassword([]byte(s.Password), 12)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			res, err = db.ExecContext(r.Context(),
				`UPDATE students SET name=$1, email=$2, subscription_status=$3, password_hash=$4 WHERE id=$5`,
				s.Name, s.Email, s.Subscription, string(hash), id)
		} else {
			res, err = db.ExecContext(r.Context(),
				`UPDATE students SET name=$1, email=$2, subscription_status=$3 WHERE id=$4`,
				s.Name, s.Email, s.Subscription, id)
		}
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "student not found", 404)
			return
		}
		s.ID = id
		s.Password = ""
		_ = json.NewEncoder(w).Encode(s)
	}
}

func DeleteStudentHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "studentID")
		res, err := db.ExecContext(r.Context(), `DELETE FROM students WHERE id=$1`, id)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "student not found", 404)
			return
		}
		w.WriteHeader(204)
	}
}

// ChangePasswordHandler lets a student rotate their own password.
func ChangePasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Old string `json:"old_password"`
			New string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if len(req.New) < 8 {
			http.Error(w, "new password too short", 400)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		var phash string
		err := db.QueryRowContext(r.Context(),
			`SELECT password_hash FROM students WHERE id=$1`, sub).Scan(&phash)
		if err != nil {
			http.Error(w, "student not found", 404)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(phash), []byte(req.Old)) != nil {
			http.Error(w, "wrong password", 403)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.New), 12)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if _, err := db.ExecContext(r.Context(),
			`UPDATE students SET password_hash=$1 WHERE id=$2`, string(hash), sub); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

// AnalyticsHandler is the admin dashboard summary: headcount, attempt
// volume, pass rate, average score.
func AnalyticsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var students, attempts, passed int
		var avgPct float64
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&students); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		err := db.QueryRowContext(ctx, `SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END),0),
			COALESCE(AVG(percentage),0) FROM exam_attempts`).Scan(&attempts, &passed, &avgPct)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		passRate := 0.0
		if attempts > 0 {
			passRate = float64(passed) / float64(attempts)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"students":       students,
			"attempts":       attempts,
			"passed":         passed,
			"pass_rate":      passRate,
			"avg_percentage": avgPct,
		})
	}
}
