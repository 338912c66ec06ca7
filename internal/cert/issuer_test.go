package cert_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keeleklass/keeleklass/internal/cert"
	"github.com/keeleklass/keeleklass/internal/exam"
)

type fakeStore struct {
	attempt    exam.Attempt
	attemptErr error
	completed  int
	certs      map[string]cert.Certificate
	putErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{certs: map[string]cert.Certificate{}}
}

func (f *fakeStore) LatestPassedAttempt(_ context.Context, _, _ string) (exam.Attempt, error) {
	return f.attempt, f.attemptErr
}

func (f *fakeStore) CompletedModuleCount(_ context.Context, _ string) (int, error) {
	return f.completed, nil
}

func (f *fakeStore) PutCertificate(_ context.Context, c cert.Certificate) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.certs[c.StudentID+"/"+c.TemplateID] = c
	return nil
}

func (f *fakeStore) GetCertificate(_ context.Context, studentID, templateID string) (cert.Certificate, error) {
	c, ok := f.certs[studentID+"/"+templateID]
	if !ok {
		return cert.Certificate{}, errors.New("not found")
	}
	return c, nil
}

func testIssuer(store cert.Store) *cert.Issuer {
	fixed := time.Unix(1700000000, 0)
	return cert.New(store, func() time.Time { return fixed })
}

func TestIssueRequiresPassedAttempt(t *testing.T) {
	store := newFakeStore()
	store.attemptErr = errors.New("no rows")
	iss := testIssuer(store)

	if _, err := iss.Issue(context.Background(), "s1", "eksam-a2"); !errors.Is(err, cert.ErrNotPassed) {
		t.Fatalf("expected ErrNotPassed, got %v", err)
	}
	if len(store.certs) != 0 {
		t.Fatalf("nothing should be persisted without a pass")
	}

	// a stored but failed attempt is just as ineligible
	store.attemptErr = nil
	store.attempt = exam.Attempt{ID: "a1", Percentage: 40, Passed: false}
	if _, err := iss.Issue(context.Background(), "s1", "eksam-a2"); !errors.Is(err, cert.ErrNotPassed) {
		t.Fatalf("failed attempt must not certify, got %v", err)
	}
}

func TestIssueAndReissue(t *testing.T) {
	store := newFakeStore()
	store.attempt = exam.Attempt{ID: "a1", StudentID: "s1", TemplateID: "eksam-a2", Percentage: 85, Passed: true}
	store.completed = 7
	iss := testIssuer(store)

	c, err := iss.Issue(context.Background(), "s1", "eksam-a2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if c.ID == "" {
		t.Fatalf("certificate must get an id")
	}
	if c.StudentID != "s1" || c.TemplateID != "eksam-a2" {
		t.Fatalf("wrong subject: %+v", c)
	}
	if c.ScorePercent != 85 || c.CompletedModules != 7 {
		t.Fatalf("certificate must carry score and progress: %+v", c)
	}
	if c.IssuedAt != 1700000000 {
		t.Fatalf("issued_at must come from the injected clock, got %d", c.IssuedAt)
	}

	// second call returns the stored certificate, even if the backing
	// attempt has since changed
	store.attempt.Percentage = 95
	again, err := iss.Issue(context.Background(), "s1", "eksam-a2")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if again != c {
		t.Fatalf("reissue must return the original certificate: %+v vs %+v", again, c)
	}
}

func TestIssueSurfacesStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.attempt = exam.Attempt{ID: "a1", Percentage: 80, Passed: true}
	store.putErr = errors.New("disk full")
	iss := testIssuer(store)

	if _, err := iss.Issue(context.Background(), "s1", "eksam-a2"); err == nil {
		t.Fatalf("expected persistence error to surface")
	}
}
