package history

import (
	"sync"

	"search-chatter/internal/llm"
)

// Manager keeps the rolling conversation window of every user. Only the most
// recent limit turns are retained.
type Manager struct {
	mu       sync.RWMutex
	limit    int
	sessions map[int64][]llm.Message

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = 1
	}
	return &Manager{
		limit:    limit,
		sessions: make(map[int64][]llm.Message),
		locks:    make(map[int64]*userLock),
	}
}

func (m *Manager) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *Manager) AppendUser(userID int64, content string) {
	m.Append(userID, llm.Message{Role: llm.RoleUser, Content: content})
}

func (m *Manager) AppendAssistant(userID int64, content string) {
	m.Append(userID, llm.Message{Role: llm.RoleAssistant, Content: content})
}

func (m *Manager) Append(userID int64, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = trim(append(m.sessions[userID], msg), m.limit)
}

// Get returns a copy of the user's window in chronological order.
func (m *Manager) Get(userID int64) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	es := m.sessions[userID]
	out := make([]llm.Message, len(es))
	copy(out, es)
	return out
}

// Window returns what the history would look like after appending next,
// without storing it.
func (m *Manager) Window(userID int64, next llm.Message) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	es := m.sessions[userID]
	out := make([]llm.Message, 0, len(es)+1)
	out = append(out, es...)
	out = append(out, next)
	return trim(out, m.limit)
}

// Sessions reports how many users currently have a non-empty history.
func (m *Manager) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, es := range m.sessions {
		if len(es) > 0 {
			n++
		}
	}
	return n
}

// Lock serialises work on a single user's history. The returned func releases it.
func (m *Manager) Lock(userID int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, userID)
		}
		m.locksMu.Unlock()
	}
}

func trim(es []llm.Message, limit int) []llm.Message {
	if len(es) <= limit {
		return es
	}
	out := make([]llm.Message, limit)
	copy(out, es[len(es)-limit:])
	return out
}
