// Package session holds the ephemeral binding between a selection-control
// message and a resolved media reference.
package session

import (
	"sync"
	"time"

	"github.com/ytdbot/ytd-bot/internal/domain"
)

// DefaultTTL is how long a selection session stays actionable.
const DefaultTTL = time.Hour

// Store is a TTL-indexed map from control-message ID to SelectionSession.
// Mutation is serialized by a single lock; the critical sections are short
// so concurrent downloads are never held up by the store.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int]*domain.SelectionSession

	now func() time.Time // injectable for tests
}

// New creates a Store with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		entries: make(map[int]*domain.SelectionSession),
		now:     time.Now,
	}
}

// Put stores a session for the given key, overwriting any existing entry.
func (s *Store) Put(key int, media domain.MediaReference, catalog []domain.Rendition) *domain.SelectionSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &domain.SelectionSession{
		Key:       key,
		Media:     media,
		Catalog:   catalog,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.entries[key] = sess
	return sess
}

// TakeIfValid atomically removes and returns the session for key, but only
// if it has not expired. Consuming on read makes a second press on the same
// controls a no-op, which is the desired at-most-once trigger semantics.
// An expired entry is removed as a side effect and reported as missing.
func (s *Store) TakeIfValid(key int) (*domain.SelectionSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	if s.now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

// SweepExpired removes all entries that expired before now. It is invoked
// opportunistically at the start of each new interactive request instead of
// on a background timer.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, sess := range s.entries {
		if sess.ExpiresAt.Before(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
