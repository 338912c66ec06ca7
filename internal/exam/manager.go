package exam

import "sync"

// Manager tracks at most one live session per student. Starting a new
// session closes any previous one so its timer cannot fire late.
type Manager struct {
	mu        sync.Mutex
	byStudent map[string]*Session
}

func NewManager() *Manager {
	return &Manager{byStudent: map[string]*Session{}}
}

func (m *Manager) Start(tmpl Template, studentID string, sink Sink, opts ...SessionOption) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byStudent[studentID]; ok {
		old.Close()
	}
	s := NewSession(tmpl, studentID, sink, opts...)
	m.byStudent[studentID] = s
	s.Start()
	return s
}

func (m *Manager) Get(studentID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byStudent[studentID]
	return s, ok
}

// Remove drops the student's session, stopping its timer.
func (m *Manager) Remove(studentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byStudent[studentID]; ok {
		s.Close()
		delete(m.byStudent, studentID)
	}
}
