// Package session keeps per-session conversation history in memory.
// History is bounded: only the most recent exchanges survive, so prompt
// size stays flat no matter how long a conversation runs. Sessions are
// never persisted; a restart clears them all.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Exchange is one completed user/assistant turn.
type Exchange struct {
	UserMessage string
	Assistant   string
}

type session struct {
	mu        sync.Mutex
	exchanges []Exchange
	createdAt time.Time
	updatedAt time.Time
}

// Manager hands out session IDs and tracks the rolling history window for
// each. Safe for concurrent use by multiple goroutines; operations on
// distinct sessions do not block each other.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	maxHistory int
}

// NewManager creates a Manager keeping at most maxHistory exchanges per
// session. A non-positive maxHistory disables history entirely: sessions
// still exist but History always returns empty.
func NewManager(maxHistory int) *Manager {
	return &Manager{
		sessions:   make(map[string]*session),
		maxHistory: maxHistory,
	}
}

// NewSession creates a session and returns its ID.
func (m *Manager) NewSession() string {
	id := uuid.NewString()
	now := time.Now()

	m.mu.Lock()
	m.sessions[id] = &session{createdAt: now, updatedAt: now}
	m.mu.Unlock()

	return id
}

// Ensure returns id if that session exists, otherwise creates a fresh
// session and returns its ID. Callers that accept client-supplied IDs use
// this so an unknown or expired ID degrades to a new conversation instead
// of an error.
func (m *Manager) Ensure(id string) string {
	if id != "" {
		m.mu.RLock()
		_, ok := m.sessions[id]
		m.mu.RUnlock()
		if ok {
			return id
		}
	}
	return m.NewSession()
}

func (m *Manager) lookup(id string) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// AddExchange records one completed turn. When the session already holds
// the maximum number of exchanges, the oldest is evicted first. Unknown
// session IDs are ignored.
func (m *Manager) AddExchange(id, userMessage, assistant string) {
	s := m.lookup(id)
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = append(s.exchanges, Exchange{UserMessage: userMessage, Assistant: assistant})
	if m.maxHistory <= 0 {
		s.exchanges = nil
	} else if over := len(s.exchanges) - m.maxHistory; over > 0 {
		s.exchanges = append(s.exchanges[:0:0], s.exchanges[over:]...)
	}
	s.updatedAt = time.Now()
}

// History renders the session's retained exchanges as prompt text, oldest
// first:
//
//	User: <message>
//	Assistant: <response>
//
// separated by blank lines. Returns "" for unknown or empty sessions.
func (m *Manager) History(id string) string {
	s := m.lookup(id)
	if s == nil {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.exchanges) == 0 {
		return ""
	}

	parts := make([]string, 0, len(s.exchanges))
	for _, ex := range s.exchanges {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", ex.UserMessage, ex.Assistant))
	}
	return strings.Join(parts, "\n\n")
}

// Exchanges returns a copy of the session's retained exchanges.
func (m *Manager) Exchanges(id string) []Exchange {
	s := m.lookup(id)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Clear drops a session's history but keeps the session alive.
func (m *Manager) Clear(id string) {
	s := m.lookup(id)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.exchanges = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
