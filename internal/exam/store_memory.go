package exam

import (
	"context"
	"errors"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	templates map[string]Template
	order     []string // insertion order; last is "current"
	attempts  map[string]Attempt
}

// NewInMemoryStore backs tests and single-box offline deployments.
func NewInMemoryStore() Store {
	return &memoryStore{
		templates: map[string]Template{},
		attempts:  map[string]Attempt{},
	}
}

func (m *memoryStore) PutTemplate(_ context.Context, t Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t = cloneTemplate(t)
	t.RecomputeTotalPoints()
	if _, ok := m.templates[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.templates[t.ID] = t
	return nil
}

func (m *memoryStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	t, err := m.GetTemplateFull(ctx, id)
	if err != nil {
		return Template{}, err
	}
	t.StripKeys()
	return t, nil
}

func (m *memoryStore) GetTemplateFull(_ context.Context, id string) (Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return Template{}, errors.New("exam template not found")
	}
	// Returned templates must not alias the stored one: callers strip
	// answer keys in place.
	t = cloneTemplate(t)
	t.RecomputeTotalPoints()
	return t, nil
}

// cloneTemplate deep-copies the section and question slices so reads
// and writes never share backing arrays with the store.
func cloneTemplate(t Template) Template {
	secs := make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		qs := make([]Question, len(s.Questions))
		copy(qs, s.Questions)
		s.Questions = qs
		secs[i] = s
	}
	t.Sections = secs
	return t
}

func (m *memoryStore) CurrentTemplate(ctx context.Context) (Template, error) {
	m.mu.RLock()
	if len(m.order) == 0 {
		m.mu.RUnlock()
		return Template{}, errors.New("exam template not found")
	}
	id := m.order[len(m.order)-1]
	m.mu.RUnlock()
	return m.GetTemplateFull(ctx, id)
}

func (m *memoryStore) SaveAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, errors.New("attempt not found")
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, studentID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) LatestPassedAttempt(_ context.Context, studentID, templateID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best Attempt
	found := false
	for _, a := range m.attempts {
		if a.StudentID != studentID || a.TemplateID != templateID || !a.Passed {
			continue
		}
		if !found || a.CompletedAt > best.CompletedAt {
			best = a
			found = true
		}
	}
	if !found {
		return Attempt{}, errors.New("attempt not found")
	}
	return best, nil
}
