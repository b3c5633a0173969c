package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-loanengine-be/pkg/store"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps sessions in process memory with an idle TTL.
// Every mutation goes through Update, which serializes writers per
// session id: two concurrent turns for the same session never interleave
// their fact merges. Updates refresh the TTL, so an active session only
// expires after a full idle window.
type SessionRepository struct {
	cache *cache.Cache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionRepository(ttl, purgeInterval time.Duration) *SessionRepository {
	return &SessionRepository{
		cache: cache.New(ttl, purgeInterval),
		locks: make(map[string]*sync.Mutex),
	}
}

// Create starts a fresh session with an opaque id.
func (r *SessionRepository) Create(now time.Time) *store.Session {
	session := store.NewSession(uuid.NewString(), now)
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
	return session
}

// Ensure returns the session for sessionID, or a fresh one when the id
// is empty or no longer live. Callers must use the returned session's
// ID, which differs from the requested one after expiry.
func (r *SessionRepository) Ensure(sessionID string, now time.Time) *store.Session {
	if sessionID != "" {
		if session, found := r.Get(sessionID); found {
			return session
		}
	}
	return r.Create(now)
}

// Get returns the session without refreshing its TTL. Callers that only
// read (history endpoints) should not keep an abandoned session alive.
func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

// Update runs fn with exclusive ownership of the session. The purge
// goroutine can drop the cache entry but never invalidates the pointer
// fn holds, so an eviction cannot land mid-mutation; a successful update
// re-inserts the session and restarts its idle window.
func (r *SessionRepository) Update(sessionID string, now time.Time, fn func(session *store.Session) error) error {
	lock := r.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, found := r.Get(sessionID)
	if !found {
		return ErrSessionNotFound
	}

	if err := fn(session); err != nil {
		return err
	}

	session.LastActivityAt = now
	r.cache.Set(sessionID, session, cache.DefaultExpiration)
	return nil
}

// Delete removes the session and its lock entry.
func (r *SessionRepository) Delete(sessionID string) {
	lock := r.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	r.cache.Delete(sessionID)

	r.mu.Lock()
	delete(r.locks, sessionID)
	r.mu.Unlock()
}

// Count reports live sessions, expired entries excluded lazily.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) lockFor(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}
