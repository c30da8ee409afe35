package engine

import (
	"strings"
	"sync"
	"time"
)

// Session tracks the accrual and settlement state for a single wallet. All
// fields are owned by the Store and mutated only under its lock.
type Session struct {
	// StartedAt is when the wallet's accrual clock began.
	StartedAt time.Time
	// Unsettled is accrued yield not yet reflected in a confirmed mint.
	Unsettled float64
	// LastAccrualAt is the previous accrual tick; each read accrues only the
	// time elapsed since it, so repeated reads never double-count a window.
	LastAccrualAt time.Time
	// LastAttemptAt is the most recent admitted settlement attempt, used for
	// throttling.
	LastAttemptAt time.Time

	settling bool
}

// Settling reports whether a settlement attempt is currently in flight.
func (s Session) Settling() bool {
	return s.settling
}

// NormalizeWallet canonicalises a wallet address for use as a session key.
// Comparison is case-insensitive.
func NormalizeWallet(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

// Store owns all mutable per-wallet session state. Every operation is a short
// in-memory critical section; nothing inside the lock performs I/O.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    func() time.Time
}

// NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		clock:    time.Now,
	}
}

// WithClock overrides the store clock for deterministic tests.
func (s *Store) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
}

func (s *Store) freshSessionLocked() *Session {
	now := s.clock()
	return &Session{StartedAt: now, LastAccrualAt: now, LastAttemptAt: now}
}

// GetOrCreate returns a snapshot of the wallet's session, creating it first if
// absent. Lookup and creation happen under one lock acquisition, so two
// concurrent first-accesses cannot create two sessions.
func (s *Store) GetOrCreate(wallet string) Session {
	key := NormalizeWallet(wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = s.freshSessionLocked()
		s.sessions[key] = sess
	}
	return *sess
}

// Upsert applies fn to the wallet's session, creating the session first if it
// is absent. Creation and mutation share one lock acquisition, so a concurrent
// delete can never leave fn running against a vanished session.
func (s *Store) Upsert(wallet string, fn func(*Session)) Session {
	key := NormalizeWallet(wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = s.freshSessionLocked()
		s.sessions[key] = sess
	}
	fn(sess)
	return *sess
}

// Reset installs a fresh session for the wallet, discarding any prior state.
func (s *Store) Reset(wallet string) Session {
	key := NormalizeWallet(wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.freshSessionLocked()
	s.sessions[key] = sess
	return *sess
}

// Get returns a snapshot of the wallet's session if it exists.
func (s *Store) Get(wallet string) (Session, bool) {
	key := NormalizeWallet(wallet)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Mutate applies fn to the wallet's session under exclusive access and returns
// the resulting snapshot. Mutating a deleted session is a no-op, not an error:
// an in-flight settlement may race a stop request.
func (s *Store) Mutate(wallet string, fn func(*Session)) (Session, bool) {
	key := NormalizeWallet(wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return Session{}, false
	}
	fn(sess)
	return *sess, true
}

// Delete removes the wallet's session. Deleting an absent session is a no-op.
func (s *Store) Delete(wallet string) {
	key := NormalizeWallet(wallet)
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
}

// Len reports the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
