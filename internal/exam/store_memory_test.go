package exam_test

import (
	"context"
	"testing"

	"github.com/keeleklass/keeleklass/internal/exam"
	"github.com/keeleklass/keeleklass/internal/grading"
)

func TestMemoryStoreReadsDoNotAliasStoredTemplate(t *testing.T) {
	store := exam.NewInMemoryStore()
	ctx := context.Background()

	if err := store.PutTemplate(ctx, twoSectionTemplate()); err != nil {
		t.Fatalf("put: %v", err)
	}

	// a student-safe read strips keys on its own copy only
	stripped, err := store.GetTemplate(ctx, "eksam-a2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stripped.Sections[0].Questions[0].Key.IsNone() {
		t.Fatalf("student view must not carry keys")
	}

	full, err := store.GetTemplateFull(ctx, "eksam-a2")
	if err != nil {
		t.Fatalf("get full: %v", err)
	}
	if full.Sections[0].Questions[0].Key != grading.Index(0) {
		t.Fatalf("stored template lost its answer keys after a student-safe read")
	}

	cur, err := store.CurrentTemplate(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	cur.StripKeys()
	if full, err = store.GetTemplateFull(ctx, "eksam-a2"); err != nil || full.Sections[1].Questions[0].Key.IsNone() {
		t.Fatalf("stripping a served copy must not reach the store: %v", err)
	}
}

func TestMemoryStorePutDoesNotRetainCallerSlices(t *testing.T) {
	store := exam.NewInMemoryStore()
	ctx := context.Background()

	tmpl := twoSectionTemplate()
	if err := store.PutTemplate(ctx, tmpl); err != nil {
		t.Fatalf("put: %v", err)
	}

	// mutating the caller's copy after Put must not leak into the store
	tmpl.Sections[0].Questions[0].Key = grading.Index(3)
	full, err := store.GetTemplateFull(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("get full: %v", err)
	}
	if full.Sections[0].Questions[0].Key != grading.Index(0) {
		t.Fatalf("store shares backing arrays with the caller: %+v", full.Sections[0].Questions[0].Key)
	}
}
