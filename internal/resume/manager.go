package resume

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"careerboost/internal/errors"
	"careerboost/internal/types"
)

// SessionManager keeps the live sessions keyed by resume ID and evicts the
// ones left idle for longer than the TTL. Processing sessions are never
// evicted.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	observer Observer
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	now      func() time.Time
	logger   *errors.Logger
}

// NewSessionManager creates a manager. A positive ttl starts the cleanup
// goroutine; call Close to stop it.
func NewSessionManager(ttl time.Duration, observer Observer, logger *errors.Logger) *SessionManager {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	m := &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		observer: observer,
		done:     make(chan struct{}),
		now:      time.Now,
		logger:   logger,
	}
	if ttl > 0 {
		m.wg.Add(1)
		go m.cleanupRoutine(cleanupInterval(ttl))
	}
	return m
}

func cleanupInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, time.Second), 10*time.Minute)
}

// Create starts a new upload-phase session with a fresh ID
func (m *SessionManager) Create(userID string) *Session {
	s := m.newSession(uuid.NewString(), userID)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Open returns the live session of r, creating one loaded with r when there
// is none. An existing session keeps its unsaved draft.
func (m *SessionManager) Open(r *types.Resume) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[r.ID]; ok && s.userID == r.UserID {
		m.mu.Unlock()
		return s, nil
	}
	s := m.newSession(r.ID, r.UserID)
	m.sessions[r.ID] = s
	m.mu.Unlock()

	if err := s.Load(r); err != nil {
		m.Remove(r.ID)
		return nil, err
	}
	return s, nil
}

// Get returns the session with id owned by userID
func (m *SessionManager) Get(id, userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.userID != userID {
		return nil, false
	}
	return s, true
}

// Remove drops a session, e.g. after its resume was deleted
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// GetStats returns session counts per phase
func (m *SessionManager) GetStats() map[string]any {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	phases := map[string]int{}
	for _, s := range all {
		phases[string(s.Phase())]++
	}
	return map[string]any{
		"active_sessions": len(all),
		"by_phase":        phases,
		"ttl_seconds":     m.ttl.Seconds(),
	}
}

func (m *SessionManager) newSession(id, userID string) *Session {
	s := NewSession(id, userID, m.observer)
	s.now = m.now
	s.lastActive = m.now()
	return s
}

func (m *SessionManager) cleanupRoutine(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.done:
			return
		}
	}
}

// evictIdle removes sessions idle for longer than the TTL and returns how
// many were removed.
func (m *SessionManager) evictIdle() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	candidates := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		candidates[id] = s
	}
	m.mu.Unlock()

	var expired []string
	for id, s := range candidates {
		lastActive, phase := s.idleSince()
		if phase != PhaseProcessing && now.Sub(lastActive) > m.ttl {
			expired = append(expired, id)
		}
	}

	m.mu.Lock()
	for _, id := range expired {
		if m.sessions[id] == candidates[id] {
			delete(m.sessions, id)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if len(expired) > 0 {
		m.logger.Debug("Session cleanup completed",
			"evicted", len(expired),
			"remaining_sessions", remaining)
	}
	return len(expired)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *SessionManager) Close() {
	m.once.Do(func() { close(m.done) })
	m.wg.Wait()
}
