package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
)

type memoryEntry struct {
	page      models.Page
	expiresAt time.Time
}

type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory keeps pages for ttl; ttl <= 0 keeps them forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, url string) (models.Page, bool, error) {
	key := Key(url)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return models.Page{}, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return models.Page{}, false, nil
	}
	return e.page, true, nil
}

func (m *Memory) Set(_ context.Context, url string, page models.Page) error {
	e := memoryEntry{page: page}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[Key(url)] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
