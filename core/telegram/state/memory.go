package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

// DefaultTTL bounds how long an abandoned flow survives.
const DefaultTTL = 30 * time.Minute

// Manager stores one FlowState per user.
type Manager interface {
	// Get returns the user's state, or Idle when none is stored or it expired.
	Get(userID int64) FlowState
	// Set replaces the user's state. Setting an idle state clears it.
	Set(userID int64, st FlowState)
	Clear(userID int64)
	// Sweep deletes expired states and reports how many were removed.
	Sweep() int
	Len() int
}

// Option configures a memory manager.
type Option func(*memoryManager)

// WithTTL overrides DefaultTTL; zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *memoryManager) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *memoryManager) {
		if now != nil {
			m.now = now
		}
	}
}

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]FlowState
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryManager constructs the in-process Manager.
func NewMemoryManager(opts ...Option) Manager {
	m := &memoryManager{
		sessions: make(map[int64]FlowState),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *memoryManager) Get(userID int64) FlowState {
	m.mu.RLock()
	st, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok || st.expired(m.now(), m.ttl) {
		return Idle()
	}
	st.Data = st.Data.Clone()
	return st
}

func (m *memoryManager) Set(userID int64, st FlowState) {
	if !st.Active() {
		m.Clear(userID)
		return
	}
	st.Data = st.Data.Clone()
	if st.Data == nil {
		st.Data = Accumulator{}
	}
	st.UpdatedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = st
}

func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, st := range m.sessions {
		if st.expired(now, m.ttl) {
			delete(m.sessions, id)
			removed++
			logger.SVCFlow.Debug("state.expired",
				slog.Int64("user_id", id),
				slog.String("flow", string(st.Flow)),
				slog.String("step", string(st.Step)),
			)
		}
	}
	return removed
}

func (m *memoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
