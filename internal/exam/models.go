package exam

import "github.com/keeleklass/keeleklass/internal/grading"

type Question struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"` // multiple_choice, true_false, fill_blank, short_answer, essay
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"` // multiple_choice only

	// Key is the correct answer: an option index, a boolean or text
	// depending on Type; none for essay. Stripped when serving students.
	Key    grading.Value `json:"key"`
	Points float64       `json:"points"`
}

type Section struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type Template struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	TimeLimitMin int       `json:"time_limit_min"`
	PassingScore int       `json:"passing_score"` // percent, 0-100
	TotalPoints  float64   `json:"total_points"`
	Sections     []Section `json:"sections"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// RecomputeTotalPoints sums question points across all sections and
// overwrites TotalPoints. Stored totals can go stale and are never
// trusted.
func (t *Template) RecomputeTotalPoints() {
	var sum float64
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			sum += q.Points
		}
	}
	t.TotalPoints = sum
}

// StripKeys blanks every answer key, for serving templates to students.
func (t *Template) StripKeys() {
	for si := range t.Sections {
		for qi := range t.Sections[si].Questions {
			t.Sections[si].Questions[qi].Key = grading.None()
		}
	}
}

func (t *Template) sectionIndex(id string) int {
	for i, s := range t.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// AnswerSet maps question id to the submitted answer. Held in memory
// for the life of a session; persisted only inside a finished Attempt.
type AnswerSet map[string]grading.Value

type SectionScore struct {
	Earned float64 `json:"earned_points"`
	Max    float64 `json:"max_points"`
}

// Attempt is one finished, scored run through a template. Created
// exactly once per finish and never mutated afterward.
type Attempt struct {
	ID            string                  `json:"id"`
	TemplateID    string                  `json:"exam_template_id"`
	StudentID     string                  `json:"student_id"`
	EarnedPoints  float64                 `json:"total_earned_points"`
	MaxPoints     float64                 `json:"total_max_points"`
	Percentage    int                     `json:"percentage"`
	Passed        bool                    `json:"passed"`
	TimeSpentSec  int                     `json:"time_spent_sec"`
	Answers       AnswerSet               `json:"answers"`
	SectionScores map[string]SectionScore `json:"section_scores"`
	CompletedAt   int64                   `json:"completed_at"`
}

// EligibleForCertificate is the single authority on whether an attempt
// unlocks certificate issuance.
func EligibleForCertificate(a Attempt) bool { return a.Passed }
