package exam_test

import (
	"context"
	"testing"
	"time"

	"github.com/keeleklass/keeleklass/internal/exam"
	"github.com/keeleklass/keeleklass/internal/grading"
)

func TestManagerOneSessionPerStudent(t *testing.T) {
	store := exam.NewInMemoryStore()
	ctx := context.Background()
	if err := store.PutTemplate(ctx, twoSectionTemplate()); err != nil {
		t.Fatalf("put template: %v", err)
	}
	tmpl, err := store.CurrentTemplate(ctx)
	if err != nil {
		t.Fatalf("current template: %v", err)
	}

	mgr := exam.NewManager()
	opts := []exam.SessionOption{
		exam.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		exam.WithTickInterval(0),
	}

	first := mgr.Start(tmpl, "s1", store, opts...)
	if got, ok := mgr.Get("s1"); !ok || got != first {
		t.Fatalf("manager must track the started session")
	}
	_ = first.RecordAnswer("q1", grading.Index(0))

	// restarting replaces the old session and its answers
	second := mgr.Start(tmpl, "s1", store, opts...)
	if first == second {
		t.Fatalf("restart must produce a fresh session")
	}
	if got, _ := mgr.Get("s1"); got != second {
		t.Fatalf("manager must serve the newest session")
	}

	// the replaced session is closed; its answers never persist
	if _, err := second.CompleteSection("vocab"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	a, saveErr := second.Finish()
	if saveErr != nil {
		t.Fatalf("finish save: %v", saveErr)
	}
	if got, err := store.GetAttempt(ctx, a.ID); err != nil || got.EarnedPoints != 0 {
		t.Fatalf("stored attempt mismatch: %+v err=%v", got, err)
	}

	mgr.Remove("s1")
	if _, ok := mgr.Get("s1"); ok {
		t.Fatalf("removed session must be gone")
	}
}
