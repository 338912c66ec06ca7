package exam

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keeleklass/keeleklass/internal/grading"
)

// State names the phases of one exam run.
type State string

const (
	StateInstructions State = "instructions"
	StateSection      State = "section"
	StateResults      State = "results"
)

var (
	ErrNotStarted      = errors.New("exam not started")
	ErrFinished        = errors.New("exam already finished")
	ErrSectionNotFound = errors.New("section not found")
)

// Sink receives the finished attempt for durable storage. A failing
// sink never blocks the student from seeing their result.
type Sink interface {
	SaveAttempt(ctx context.Context, a Attempt) error
}

// Session drives one student's run through an exam template:
// instructions -> section[0..n] -> results, with a single exam-wide
// countdown that force-finishes at zero. Methods are safe for
// concurrent use; the countdown ticks on a background goroutine while
// request handlers mutate answers.
type Session struct {
	mu sync.Mutex

	tmpl      Template // full template, keys included
	studentID string
	grader    grading.Grader
	sink      Sink
	now       func() time.Time
	tickEvery time.Duration

	state      State
	sectionIdx int
	answers    AnswerSet
	completed  map[string]bool
	frozen     map[string]SectionScore

	timeLimitSec  int
	timeRemaining int

	finished bool
	result   *Attempt
	saveErr  error

	done     chan struct{}
	stopOnce sync.Once
}

type SessionOption func(*Session)

// WithClock injects the wall clock, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithGrader overrides the default grader.
func WithGrader(g grading.Grader) SessionOption {
	return func(s *Session) { s.grader = g }
}

// WithTickInterval sets the countdown cadence. Zero disables the
// background ticker entirely; callers (tests) drive Tick themselves.
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.tickEvery = d }
}

// NewSession prepares a run over tmpl for one student. The template is
// assumed valid (at least one section with questions); existence checks
// belong to the caller. Total points are recomputed, never trusted.
func NewSession(tmpl Template, studentID string, sink Sink, opts ...SessionOption) *Session {
	tmpl.RecomputeTotalPoints()
	s := &Session{
		tmpl:      tmpl,
		studentID: studentID,
		grader:    grading.NewDefaultGrader(),
		sink:      sink,
		now:       time.Now,
		tickEvery: time.Second,
		state:     StateInstructions,
		answers:   AnswerSet{},
		completed: map[string]bool{},
		frozen:    map[string]SectionScore{},
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.timeLimitSec = tmpl.TimeLimitMin * 60
	s.timeRemaining = s.timeLimitSec
	return s
}

// Start leaves the instruction screen, clears any answers, arms the
// countdown and enters the first section. The clock starts here, not
// at construction.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInstructions {
		return
	}
	s.state = StateSection
	s.sectionIdx = 0
	s.answers = AnswerSet{}
	s.timeRemaining = s.timeLimitSec
	if s.tickEvery > 0 {
		go s.runTimer()
	}
}

func (s *Session) runTimer() {
	t := time.NewTicker(s.tickEvery)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick advances the countdown by one second. Reaching zero finishes the
// exam; the zero-crossing stops the clock itself, so a late tick can
// never finish twice.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSection || s.finished {
		return
	}
	s.timeRemaining--
	if s.timeRemaining > 0 {
		return
	}
	s.timeRemaining = 0
	s.finishLocked()
}

// RecordAnswer stores or overwrites the answer for a question. The
// value's shape is not validated here; interpretation happens at
// grading time.
func (s *Session) RecordAnswer(questionID string, v grading.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInstructions {
		return ErrNotStarted
	}
	if s.finished {
		return ErrFinished
	}
	s.answers[questionID] = v
	return nil
}

// ScoreSection recomputes the section's score from the current answers.
// Pure with respect to session state: safe to call repeatedly, for any
// section, completed or not.
func (s *Session) ScoreSection(sectionID string) (SectionScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.tmpl.sectionIndex(sectionID)
	if idx < 0 {
		return SectionScore{}, ErrSectionNotFound
	}
	return s.scoreSectionLocked(s.tmpl.Sections[idx]), nil
}

func (s *Session) scoreSectionLocked(sec Section) SectionScore {
	var sc SectionScore
	for _, q := range sec.Questions {
		sc.Max += q.Points
		v, ok := s.answers[q.ID]
		if !ok {
			continue
		}
		res := s.grader.Grade(grading.Q{Type: q.Type, Points: q.Points, Key: q.Key}, v)
		sc.Earned += res.AutoPoints
	}
	return sc
}

// GotoSection jumps to any section while the exam is active. Order is
// not enforced for navigation, only for the natural "next" flow.
func (s *Session) GotoSection(sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInstructions {
		return ErrNotStarted
	}
	if s.finished {
		return ErrFinished
	}
	idx := s.tmpl.sectionIndex(sectionID)
	if idx < 0 {
		return ErrSectionNotFound
	}
	s.sectionIdx = idx
	return nil
}

// CompleteSection freezes the section's score, marks it completed
// (re-completing recomputes, it does not duplicate) and advances to the
// next section in template order. Completing the last section finishes
// the exam; the returned attempt is non-nil in that case, and the error
// is the attempt-save error, if any.
func (s *Session) CompleteSection(sectionID string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInstructions {
		return nil, ErrNotStarted
	}
	if s.finished {
		return nil, ErrFinished
	}
	idx := s.tmpl.sectionIndex(sectionID)
	if idx < 0 {
		return nil, ErrSectionNotFound
	}
	s.frozen[sectionID] = s.scoreSectionLocked(s.tmpl.Sections[idx])
	s.completed[sectionID] = true
	if idx+1 < len(s.tmpl.Sections) {
		s.sectionIdx = idx + 1
		return nil, nil
	}
	s.finishLocked()
	return s.result, s.saveErr
}

// Finish scores every section and ends the exam regardless of where the
// student is. Idempotent: once finished, the stored result and save
// error are returned unchanged.
func (s *Session) Finish() (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finishLocked()
	}
	return *s.result, s.saveErr
}

// finishLocked scores the whole template (visited or not), builds the
// attempt, stops the clock and hands the attempt to the sink. Runs at
// most once per session; callers hold the lock and check s.finished.
func (s *Session) finishLocked() {
	scores := make(map[string]SectionScore, len(s.tmpl.Sections))
	var earned, max float64
	for _, sec := range s.tmpl.Sections {
		sc := s.scoreSectionLocked(sec)
		scores[sec.ID] = sc
		earned += sc.Earned
		max += sc.Max
	}
	pct := 0
	passed := false
	if max > 0 {
		pct = int(math.Round(100 * earned / max))
		passed = pct >= s.tmpl.PassingScore
	}
	spent := s.timeLimitSec - s.timeRemaining
	if spent < 0 {
		spent = 0
	}
	answers := make(AnswerSet, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	a := Attempt{
		ID:            uuid.NewString(),
		TemplateID:    s.tmpl.ID,
		StudentID:     s.studentID,
		EarnedPoints:  earned,
		MaxPoints:     max,
		Percentage:    pct,
		Passed:        passed,
		TimeSpentSec:  spent,
		Answers:       answers,
		SectionScores: scores,
		CompletedAt:   s.now().Unix(),
	}
	s.state = StateResults
	s.finished = true
	s.result = &a
	s.stopOnce.Do(func() { close(s.done) })

	if s.sink != nil {
		// Save failure is surfaced, not fatal: the student still sees
		// their score.
		s.saveErr = s.sink.SaveAttempt(context.Background(), a)
	}
}

// Result returns the finished attempt and the attempt-save error. The
// attempt is nil while the exam is still running.
func (s *Session) Result() (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil, nil
	}
	a := *s.result
	return &a, s.saveErr
}

// Close stops the countdown without finishing; leaving the exam view
// must not let a stale timer fire a late finish.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeRemaining
}

// View is a student-safe snapshot for rendering the current state.
type View struct {
	State            State                   `json:"state"`
	SectionIndex     int                     `json:"section_index"`
	Section          *Section                `json:"section,omitempty"`
	TimeRemainingSec int                     `json:"time_remaining_sec"`
	Completed        []string                `json:"completed_sections"`
	SectionScores    map[string]SectionScore `json:"section_scores,omitempty"`
}

// Snapshot renders the session for the client, with answer keys
// stripped and frozen section scores included for progress display.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:            s.state,
		SectionIndex:     s.sectionIdx,
		TimeRemainingSec: s.timeRemaining,
		Completed:        make([]string, 0, len(s.completed)),
	}
	for _, sec := range s.tmpl.Sections {
		if s.completed[sec.ID] {
			v.Completed = append(v.Completed, sec.ID)
		}
	}
	if len(s.frozen) > 0 {
		v.SectionScores = make(map[string]SectionScore, len(s.frozen))
		for k, sc := range s.frozen {
			v.SectionScores[k] = sc
		}
	}
	if s.state == StateSection && s.sectionIdx < len(s.tmpl.Sections) {
		sec := s.tmpl.Sections[s.sectionIdx]
		qs := make([]Question, len(sec.Questions))
		copy(qs, sec.Questions)
		for i := range qs {
			qs[i].Key = grading.None()
		}
		sec.Questions = qs
		v.Section = &sec
	}
	return v
}
