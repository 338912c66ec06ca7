package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keeleklass/keeleklass/internal/exam"
	"github.com/keeleklass/keeleklass/internal/grading"
	"github.com/keeleklass/keeleklass/internal/rbac"
)

// GetCurrentExamHandler serves the template the student sits next,
// answer keys stripped.
func GetCurrentExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.CurrentTemplate(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		t.StripKeys()
		_ = json.NewEncoder(w).Encode(t)
	}
}

// UploadExamHandler upserts a template (admin).
func UploadExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t exam.Template
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if t.ID == "" || len(t.Sections) == 0 {
			http.Error(w, "id and sections required", 400)
			return
		}
		if err := store.PutTemplate(r.Context(), t); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		t.RecomputeTotalPoints()
		_ = json.NewEncoder(w).Encode(t)
	}
}

// StartSessionHandler begins a fresh attempt session for the current
// student over the current template. Any previous session is discarded,
// its timer stopped.
func StartSessionHandler(mgr *exam.Manager, store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		t, err := store.CurrentTemplate(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		s := mgr.Start(t, sub, store)
		_ = json.NewEncoder(w).Encode(s.Snapshot())
	}
}

// GetSessionHandler returns the live snapshot (state, current section,
// clock, completed sections).
func GetSessionHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(r, mgr)
		if !ok {
			http.Error(w, "no active session", 404)
			return
		}
		_ = json.NewEncoder(w).Encode(s.Snapshot())
	}
}

// RecordAnswerHandler stores one answer; the body is the bare value
// (number, bool, string).
func RecordAnswerHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(r, mgr)
		if !ok {
			http.Error(w, "no active session", 404)
			return
		}
		var v grading.Value
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := s.RecordAnswer(chi.URLParam(r, "questionID"), v); err != nil {
			http.Error(w, err.Error(), 409)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

// SelectSectionHandler jumps to another section; navigation is free in
// both directions while the exam is active.
func SelectSectionHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(r, mgr)
		if !ok {
			http.Error(w, "no active session", 404)
			return
		}
		if err := s.GotoSection(chi.URLParam(r, "sectionID")); err != nil {
			http.Error(w, err.Error(), statusForSessionErr(err))
			return
		}
		_ = json.NewEncoder(w).Encode(s.Snapshot())
	}
}

// SectionScoreHandler serves the live recomputed score for one section,
// for progress display.
func SectionScoreHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(r, mgr)
		if !ok {
			http.Error(w, "no active session", 404)
			return
		}
		sc, err := s.ScoreSection(chi.URLParam(r, "sectionID"))
		if err != nil {
			http.Error(w, err.Error(), statusForSessionErr(err))
			return
		}
		_ = json.NewEncoder(w).Encode(sc)
	}
}

// finishPayload is the result screen. SaveError is a non-blocking
// notice: the score stands even when the attempt could not be stored.
type finishPayload struct {
	exam.Attempt
	SaveError string `json:"save_error,omitempty"`
}

// CompleteSectionHandler freezes the section score and advances.
// Completing the last section finishes the exam and returns the result.
func CompleteSectionHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(r, mgr)
		if !ok {
			http.Error(w, "no active session", 404)
			return
		}
		a, err := s.CompleteSection(chi.URLParam(r, "sectionID"))
		if a == nil && err != nil {
			http.Error(w, err.Error(), statusForSessionErr(err))
			return
		}
		if a == nil {
			_ = json.NewEncoder(w).Encode(s.Snapshot())
			return
		}
		writeFinish(w, *a, err)
	}
}

// FinishHandler ends the exam from anywhere, scoring unvisited sections
// as-is.
func FinishHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(r, mgr)
		if !ok {
			http.Error(w, "no active session", 404)
			return
		}
		a, saveErr := s.Finish()
		writeFinish(w, a, saveErr)
	}
}

// CloseSessionHandler drops the session without finishing; the exam
// view unmounted and its timer must not fire later.
func CloseSessionHandler(mgr *exam.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr.Remove(rbac.SubjectFromContext(r.Context()))
		w.WriteHeader(204)
	}
}

// ListMyAttemptsHandler returns the student's finished attempts.
func ListMyAttemptsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		out, err := store.ListAttempts(r.Context(), sub)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func sessionFor(r *http.Request, mgr *exam.Manager) (*exam.Session, bool) {
	return mgr.Get(rbac.SubjectFromContext(r.Context()))
}

func writeFinish(w http.ResponseWriter, a exam.Attempt, saveErr error) {
	p := finishPayload{Attempt: a}
	if saveErr != nil {
		p.SaveError = saveErr.Error()
	}
	_ = json.NewEncoder(w).Encode(p)
}

func statusForSessionErr(err error) int {
	switch {
	case errors.Is(err, exam.ErrSectionNotFound):
		return 404
	case errors.Is(err, exam.ErrNotStarted), errors.Is(err, exam.ErrFinished):
		return 409
	default:
		return 400
	}
}
