package exam_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keeleklass/keeleklass/internal/exam"
	"github.com/keeleklass/keeleklass/internal/grading"
)

type fakeSink struct {
	saved []exam.Attempt
	err   error
}

func (f *fakeSink) SaveAttempt(_ context.Context, a exam.Attempt) error {
	f.saved = append(f.saved, a)
	return f.err
}

// twoSectionTemplate: 2 sections x 2 multiple-choice questions worth 10
// points each, correct index 0.
func twoSectionTemplate() exam.Template {
	return exam.Template{
		ID:           "eksam-a2",
		Title:        "A2 Lõpueksam",
		TimeLimitMin: 30,
		PassingScore: 70,
		Sections: []exam.Section{
			{ID: "vocab", Title: "Sõnavara", Questions: []exam.Question{
				{ID: "q1", Type: grading.TypeMultipleChoice, Options: []string{"Tere", "Head", "Aitäh", "Palun"}, Key: grading.Index(0), Points: 10},
				{ID: "q2", Type: grading.TypeMultipleChoice, Options: []string{"Üks", "Kaks"}, Key: grading.Index(0), Points: 10},
			}},
			{ID: "grammar", Title: "Grammatika", Questions: []exam.Question{
				{ID: "q3", Type: grading.TypeMultipleChoice, Options: []string{"a", "b"}, Key: grading.Index(0), Points: 10},
				{ID: "q4", Type: grading.TypeMultipleChoice, Options: []string{"a", "b"}, Key: grading.Index(0), Points: 10},
			}},
		},
	}
}

func newTestSession(t *testing.T, tmpl exam.Template, sink exam.Sink) *exam.Session {
	t.Helper()
	fixed := time.Unix(1700000000, 0)
	s := exam.NewSession(tmpl, "student-1", sink,
		exam.WithClock(func() time.Time { return fixed }),
		exam.WithTickInterval(0)) // tests drive Tick themselves
	return s
}

func TestFullRunAllCorrect(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, twoSectionTemplate(), sink)

	if s.State() != exam.StateInstructions {
		t.Fatalf("fresh session must sit on instructions, got %s", s.State())
	}
	s.Start()
	if s.State() != exam.StateSection {
		t.Fatalf("start must enter the first section, got %s", s.State())
	}

	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		if err := s.RecordAnswer(q, grading.Index(0)); err != nil {
			t.Fatalf("record %s: %v", q, err)
		}
	}

	if a, err := s.CompleteSection("vocab"); a != nil || err != nil {
		t.Fatalf("completing a middle section must not finish: a=%v err=%v", a, err)
	}
	a, err := s.CompleteSection("grammar")
	if err != nil {
		t.Fatalf("finish save error: %v", err)
	}
	if a == nil {
		t.Fatalf("completing the last section must finish the exam")
	}

	if a.EarnedPoints != 40 || a.MaxPoints != 40 {
		t.Fatalf("expected 40/40, got %v/%v", a.EarnedPoints, a.MaxPoints)
	}
	if a.Percentage != 100 || !a.Passed {
		t.Fatalf("expected 100%% pass, got %d%% passed=%v", a.Percentage, a.Passed)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("expected exactly 1 saved attempt, got %d", len(sink.saved))
	}
	if got := sink.saved[0].SectionScores["vocab"]; got.Earned != 20 || got.Max != 20 {
		t.Fatalf("vocab section score wrong: %+v", got)
	}
	if !exam.EligibleForCertificate(*a) {
		t.Fatalf("passed attempt must be certificate-eligible")
	}
}

func TestZeroPointTemplateNeverDividesByZero(t *testing.T) {
	tmpl := exam.Template{
		ID:           "empty",
		TimeLimitMin: 10,
		PassingScore: 50,
		Sections: []exam.Section{
			{ID: "s1", Questions: []exam.Question{
				{ID: "q1", Type: grading.TypeMultipleChoice, Key: grading.Index(0), Points: 0},
			}},
		},
	}
	sink := &fakeSink{}
	s := newTestSession(t, tmpl, sink)
	s.Start()
	_ = s.RecordAnswer("q1", grading.Index(0))

	a, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if a.Percentage != 0 || a.Passed {
		t.Fatalf("zero-point template must yield 0%% and fail, got %d%% passed=%v", a.Percentage, a.Passed)
	}
}

func TestScoreSectionIsPureAndIdempotent(t *testing.T) {
	s := newTestSession(t, twoSectionTemplate(), &fakeSink{})
	s.Start()
	_ = s.RecordAnswer("q1", grading.Index(0))
	_ = s.RecordAnswer("q2", grading.Index(1)) // wrong

	first, err := s.ScoreSection("vocab")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	second, err := s.ScoreSection("vocab")
	if err != nil {
		t.Fatalf("score again: %v", err)
	}
	if first != second {
		t.Fatalf("scoreSection must be idempotent: %+v vs %+v", first, second)
	}
	if first.Earned != 10 || first.Max != 20 {
		t.Fatalf("expected 10/20, got %+v", first)
	}

	// scoring an unvisited section is fine (live progress display)
	if sc, err := s.ScoreSection("grammar"); err != nil || sc.Max != 20 || sc.Earned != 0 {
		t.Fatalf("unvisited section score: %+v err=%v", sc, err)
	}

	// changing the answer changes the recomputed score
	_ = s.RecordAnswer("q2", grading.Index(0))
	if sc, _ := s.ScoreSection("vocab"); sc.Earned != 20 {
		t.Fatalf("revised answer must be reflected, got %+v", sc)
	}
}

func TestTimerExpiryFinishesExactlyOnce(t *testing.T) {
	tmpl := twoSectionTemplate()
	tmpl.TimeLimitMin = 1 // 60 ticks
	sink := &fakeSink{}
	s := newTestSession(t, tmpl, sink)
	s.Start()
	_ = s.RecordAnswer("q1", grading.Index(0))

	for i := 0; i < 60; i++ {
		s.Tick()
	}
	if s.State() != exam.StateResults {
		t.Fatalf("timer expiry must force results, got %s", s.State())
	}
	if len(sink.saved) != 1 {
		t.Fatalf("expected exactly one finish at zero, got %d", len(sink.saved))
	}

	// late ticks are no-ops
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if len(sink.saved) != 1 {
		t.Fatalf("stale ticks must not refinish, got %d saves", len(sink.saved))
	}

	a, _ := s.Result()
	if a == nil {
		t.Fatalf("result must be available after expiry")
	}
	if a.TimeSpentSec != 60 {
		t.Fatalf("time spent must equal the limit on expiry, got %d", a.TimeSpentSec)
	}
	if a.EarnedPoints != 10 {
		t.Fatalf("unanswered questions score zero; expected 10 earned, got %v", a.EarnedPoints)
	}
}

func TestManualFinishIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSession(t, twoSectionTemplate(), sink)
	s.Start()

	first, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	second, err := s.Finish()
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("finish must return the same attempt, got %s vs %s", first.ID, second.ID)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("attempt must be persisted once, got %d", len(sink.saved))
	}
}

func TestSinkFailureDoesNotHideResults(t *testing.T) {
	sink := &fakeSink{err: errors.New("storage down")}
	s := newTestSession(t, twoSectionTemplate(), sink)
	s.Start()
	_ = s.RecordAnswer("q1", grading.Index(0))

	a, saveErr := s.Finish()
	if saveErr == nil {
		t.Fatalf("expected surfaced save error")
	}
	if a.EarnedPoints != 10 || a.MaxPoints != 40 {
		t.Fatalf("score must be computed despite save failure, got %v/%v", a.EarnedPoints, a.MaxPoints)
	}
	if s.State() != exam.StateResults {
		t.Fatalf("save failure must not roll back the state machine")
	}
}

func TestNavigationIsFreeWhileActive(t *testing.T) {
	s := newTestSession(t, twoSectionTemplate(), &fakeSink{})
	s.Start()

	if err := s.GotoSection("grammar"); err != nil {
		t.Fatalf("forward jump: %v", err)
	}
	if err := s.GotoSection("vocab"); err != nil {
		t.Fatalf("backward jump: %v", err)
	}
	if err := s.GotoSection("missing"); !errors.Is(err, exam.ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}

	if _, err := s.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := s.GotoSection("grammar"); !errors.Is(err, exam.ErrFinished) {
		t.Fatalf("navigation after finish must fail, got %v", err)
	}
	if err := s.RecordAnswer("q1", grading.Index(0)); !errors.Is(err, exam.ErrFinished) {
		t.Fatalf("answers after finish must fail, got %v", err)
	}
}

func TestRecordBeforeStart(t *testing.T) {
	s := newTestSession(t, twoSectionTemplate(), &fakeSink{})
	if err := s.RecordAnswer("q1", grading.Index(0)); !errors.Is(err, exam.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestSnapshotStripsAnswerKeys(t *testing.T) {
	s := newTestSession(t, twoSectionTemplate(), &fakeSink{})
	s.Start()

	v := s.Snapshot()
	if v.Section == nil {
		t.Fatalf("active session must expose the current section")
	}
	for _, q := range v.Section.Questions {
		if !q.Key.IsNone() {
			t.Fatalf("snapshot leaked an answer key for %s", q.ID)
		}
	}
}
