package exam_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/keeleklass/keeleklass/internal/db"
	"github.com/keeleklass/keeleklass/internal/exam"
	"github.com/keeleklass/keeleklass/internal/grading"
)

func newTestStore(t *testing.T) (*exam.SQLStore, *sql.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?cache=shared&mode=rwc"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return exam.NewSQLStore(dbh), dbh
}

func TestTemplateRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	tmpl := twoSectionTemplate()
	if err := store.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("put: %v", err)
	}

	full, err := store.GetTemplateFull(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("get full: %v", err)
	}
	if full.TotalPoints != 40 {
		t.Fatalf("totals must be recomputed on load, got %v", full.TotalPoints)
	}
	if full.Sections[0].Questions[0].Key != grading.Index(0) {
		t.Fatalf("full template must keep answer keys")
	}

	student, err := store.GetTemplate(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, sec := range student.Sections {
		for _, q := range sec.Questions {
			if !q.Key.IsNone() {
				t.Fatalf("student view leaked the key of %s", q.ID)
			}
		}
	}

	// upsert replaces in place
	tmpl.Title = "A2 Lõpueksam (uuendatud)"
	if err := store.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	full, err = store.GetTemplateFull(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if full.Title != tmpl.Title {
		t.Fatalf("upsert did not replace the title, got %q", full.Title)
	}

	cur, err := store.CurrentTemplate(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.ID != tmpl.ID {
		t.Fatalf("current template mismatch: %s", cur.ID)
	}
}

func TestAttemptRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	tmpl := twoSectionTemplate()
	if err := store.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("put template: %v", err)
	}

	a := exam.Attempt{
		ID:           "att-1",
		TemplateID:   tmpl.ID,
		StudentID:    "s1",
		EarnedPoints: 30,
		MaxPoints:    40,
		Percentage:   75,
		Passed:       true,
		TimeSpentSec: 900,
		Answers: exam.AnswerSet{
			"q1": grading.Index(0),
			"q2": grading.Text("tere"),
		},
		SectionScores: map[string]exam.SectionScore{
			"vocab":   {Earned: 20, Max: 20},
			"grammar": {Earned: 10, Max: 20},
		},
		CompletedAt: 1700000900,
	}
	if err := store.SaveAttempt(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetAttempt(ctx, "att-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Percentage != 75 || !got.Passed || got.TimeSpentSec != 900 {
		t.Fatalf("attempt fields lost: %+v", got)
	}
	if got.Answers["q1"] != grading.Index(0) || got.Answers["q2"] != grading.Text("tere") {
		t.Fatalf("answers lost: %+v", got.Answers)
	}
	if got.SectionScores["grammar"].Earned != 10 {
		t.Fatalf("section scores lost: %+v", got.SectionScores)
	}

	list, err := store.ListAttempts(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "att-1" {
		t.Fatalf("list mismatch: %+v", list)
	}
}

func TestLatestPassedAttempt(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	tmpl := twoSectionTemplate()
	if err := store.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("put template: %v", err)
	}

	base := exam.Attempt{
		TemplateID:    tmpl.ID,
		StudentID:     "s1",
		MaxPoints:     40,
		Answers:       exam.AnswerSet{},
		SectionScores: map[string]exam.SectionScore{},
	}

	fail := base
	fail.ID, fail.Percentage, fail.Passed, fail.CompletedAt = "att-fail", 40, false, 100
	pass1 := base
	pass1.ID, pass1.Percentage, pass1.Passed, pass1.CompletedAt = "att-pass-1", 75, true, 200
	pass2 := base
	pass2.ID, pass2.Percentage, pass2.Passed, pass2.CompletedAt = "att-pass-2", 90, true, 300

	for _, a := range []exam.Attempt{fail, pass1, pass2} {
		if err := store.SaveAttempt(ctx, a); err != nil {
			t.Fatalf("save %s: %v", a.ID, err)
		}
	}

	got, err := store.LatestPassedAttempt(ctx, "s1", tmpl.ID)
	if err != nil {
		t.Fatalf("latest passed: %v", err)
	}
	if got.ID != "att-pass-2" {
		t.Fatalf("expected the newest pass, got %s", got.ID)
	}

	if _, err := store.LatestPassedAttempt(ctx, "s2", tmpl.ID); err == nil {
		t.Fatalf("student without a pass must error")
	}
}

func TestCorruptAttemptRowIsAnError(t *testing.T) {
	store, dbh := newTestStore(t)
	ctx := context.Background()

	tmpl := twoSectionTemplate()
	if err := store.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("put template: %v", err)
	}
	_, err := dbh.ExecContext(ctx, `INSERT INTO exam_attempts
		(id,template_id,student_id,earned_points,max_points,percentage,passed,time_spent_sec,answers_json,section_scores_json,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		"att-bad", tmpl.ID, "s1", 10.0, 40.0, 25, false, 60, `{not json`, `{}`, 100)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := store.GetAttempt(ctx, "att-bad"); err == nil {
		t.Fatalf("corrupt answers json must not be served as a clean attempt")
	}
}
