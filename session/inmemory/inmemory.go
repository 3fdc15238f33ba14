package inmemory

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/askweb/session"
)

// EvictReason labels why a session left the store.
type EvictReason string

const (
	ReasonExpired  EvictReason = "expired"
	ReasonCapacity EvictReason = "capacity"
	ReasonDeleted  EvictReason = "deleted"
)

type Options struct {
	TTL         time.Duration // idle expiry, 0 disables
	MaxSessions int           // 0 means unbounded
	Logger      *log.Logger
	OnEvict     func(id string, reason EvictReason)
	Now         func() time.Time
}

type Store struct {
	sessions map[string]*session.Session
	mu       sync.RWMutex
	opts     Options
}

func NewInMemorySessionStore(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{sessions: make(map[string]*session.Session), opts: opts}
}

func (store *Store) GetOrCreate(id string) (*session.Session, bool, error) {
	now := store.opts.Now()
	store.mu.Lock()
	var removed []*session.Session
	defer func() {
		store.mu.Unlock()
		store.release(removed)
	}()

	if id != "" {
		if sess, ok := store.sessions[id]; ok {
			if !store.expired(sess, now) {
				sess.Touch(now)
				return sess, false, nil
			}
			delete(store.sessions, id)
			removed = append(removed, sess)
			store.evicted(id, ReasonExpired)
		}
	}

	if limit := store.opts.MaxSessions; limit > 0 {
		for len(store.sessions) >= limit {
			victim := store.leastRecentlyUsed()
			if victim == nil {
				store.logf("session capacity %d reached and every session is busy", limit)
				break
			}
			delete(store.sessions, victim.ID())
			removed = append(removed, victim)
			store.evicted(victim.ID(), ReasonCapacity)
		}
	}

	sess := session.New(uuid.NewString(), now)
	store.sessions[sess.ID()] = sess
	return sess, true, nil
}

func (store *Store) Get(id string) (*session.Session, error) {
	now := store.opts.Now()
	store.mu.RLock()
	sess, ok := store.sessions[id]
	store.mu.RUnlock()
	if !ok || store.expired(sess, now) {
		return nil, session.ErrNotFound
	}
	sess.Touch(now)
	return sess, nil
}

// Clear waits for any running query on the session, then empties it.
func (store *Store) Clear(id string) error {
	sess, err := store.Get(id)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	sess.Clear()
	return nil
}

func (store *Store) Delete(id string) error {
	store.mu.Lock()
	sess, ok := store.sessions[id]
	if ok {
		delete(store.sessions, id)
	}
	store.mu.Unlock()
	if !ok {
		return session.ErrNotFound
	}
	store.evicted(id, ReasonDeleted)
	store.release([]*session.Session{sess})
	return nil
}

// List returns every live session, oldest first.
func (store *Store) List() []session.Info {
	store.mu.RLock()
	out := make([]session.Info, 0, len(store.sessions))
	for _, sess := range store.sessions {
		out = append(out, sess.Info())
	}
	store.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Sweep drops sessions idle for longer than the TTL. Sessions busy with a query are skipped.
func (store *Store) Sweep(now time.Time) int {
	if store.opts.TTL <= 0 {
		return 0
	}
	store.mu.Lock()
	var removed []*session.Session
	for id, sess := range store.sessions {
		if !store.expired(sess, now) || !sess.TryLock() {
			continue
		}
		sess.Unlock()
		delete(store.sessions, id)
		removed = append(removed, sess)
		store.evicted(id, ReasonExpired)
	}
	store.mu.Unlock()
	store.release(removed)
	return len(removed)
}

func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.sessions)
}

func (store *Store) expired(sess *session.Session, now time.Time) bool {
	return store.opts.TTL > 0 && now.Sub(sess.LastUsed()) > store.opts.TTL
}

// leastRecentlyUsed picks the idle session with the oldest last-used time. Caller holds store.mu.
func (store *Store) leastRecentlyUsed() *session.Session {
	var victim *session.Session
	for _, sess := range store.sessions {
		if victim == nil || sess.LastUsed().Before(victim.LastUsed()) {
			if !sess.TryLock() {
				continue
			}
			sess.Unlock()
			victim = sess
		}
	}
	return victim
}

// release closes removed sessions once any query holding them has finished.
func (store *Store) release(removed []*session.Session) {
	for _, sess := range removed {
		sess.Lock()
		sess.Close()
		sess.Unlock()
	}
}

func (store *Store) evicted(id string, reason EvictReason) {
	store.logf("session %s removed (%s)", id, reason)
	if store.opts.OnEvict != nil {
		store.opts.OnEvict(id, reason)
	}
}

func (store *Store) logf(format string, args ...any) {
	if store.opts.Logger != nil {
		store.opts.Logger.Printf(format, args...)
	}
}

var _ session.Store = (*Store)(nil)
