package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mohammad-safakhou/askweb/tools/search"
)

var ErrNotFound = errors.New("session not found")

const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Info is the listing view of a session.
type Info struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastUsed     time.Time `json:"last_used"`
	HasIndex     bool      `json:"has_vectorstore"`
	MessageCount int       `json:"message_count"`
}

// Store interface for session management
type Store interface {
	// GetOrCreate returns the live session for id, or a new one when id is
	// empty, unknown or expired. created reports which.
	GetOrCreate(id string) (sess *Session, created bool, err error)
	Get(id string) (*Session, error)
	Clear(id string) error
	Delete(id string) error
	List() []Info
	Sweep(now time.Time) int
	Len() int
}

// Session is one conversation: its history and at most one retrieval index.
//
// Lock/Unlock is the per-session guard held for a whole query; the field lock
// only protects individual reads and writes so listings never wait on a query.
type Session struct {
	id        string
	createdAt time.Time

	turn *semaphore.Weighted

	mu       sync.RWMutex
	lastUsed time.Time
	history  []Message
	index    search.Index
	closed   bool
}

func New(id string, now time.Time) *Session {
	return &Session{id: id, createdAt: now, lastUsed: now, turn: semaphore.NewWeighted(1)}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Lock()         { _ = s.turn.Acquire(context.Background(), 1) }
func (s *Session) Unlock()       { s.turn.Release(1) }
func (s *Session) TryLock() bool { return s.turn.TryAcquire(1) }

// LockContext waits for the session lock until ctx is done. On error the lock
// is not held.
func (s *Session) LockContext(ctx context.Context) error {
	return s.turn.Acquire(ctx, 1)
}

func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// Touch moves last-used forward; it never goes backwards.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastUsed) {
		s.lastUsed = now
	}
	s.mu.Unlock()
}

// History returns a copy of the turns.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.history...)
}

func (s *Session) Append(role, content string) {
	s.mu.Lock()
	s.history = append(s.history, Message{Role: role, Content: content})
	s.mu.Unlock()
}

func (s *Session) ResetHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// Index returns the current index, nil when none.
func (s *Session) Index() search.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// ReplaceIndex installs idx and closes the one it replaces.
func (s *Session) ReplaceIndex(idx search.Index) {
	s.mu.Lock()
	old := s.index
	s.index = idx
	s.mu.Unlock()
	if old != nil && old != idx {
		_ = old.Close()
	}
}

// Clear empties history and drops the index. Callers hold the session lock.
func (s *Session) Clear() {
	s.ResetHistory()
	s.ReplaceIndex(nil)
}

// Closed reports whether the session was removed from its store.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close marks the session removed and releases its index.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	idx := s.index
	s.index = nil
	s.mu.Unlock()
	if idx != nil {
		_ = idx.Close()
	}
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		LastUsed:     s.lastUsed,
		HasIndex:     s.index != nil,
		MessageCount: len(s.history),
	}
}
