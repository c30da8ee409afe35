package engine

import "time"

// DefaultMinInterval is the default minimum spacing between settlement
// attempts for a wallet.
const DefaultMinInterval = 5 * time.Second

// Gate throttles settlement attempts per wallet and guarantees at most one
// in-flight attempt at a time. Admission is an atomic check-and-set on the
// session: a plain read-then-write here would let two concurrent metrics reads
// both admit a mint for the same wallet.
type Gate struct {
	store       *Store
	minInterval time.Duration
}

// NewGate constructs a gate over the supplied store.
func NewGate(store *Store, minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Gate{store: store, minInterval: minInterval}
}

// MinInterval returns the configured throttle spacing.
func (g *Gate) MinInterval() time.Duration {
	return g.minInterval
}

// TryAdmit atomically admits one settlement attempt for the wallet and returns
// the amount to settle. Admission succeeds only when no attempt is in flight
// and at least the minimum interval has passed since the last admitted attempt;
// on success the in-flight flag is set, the attempt clock updated and the
// unsettled balance read, all in the same critical section. Binding the amount
// to admission matters: a balance snapshot taken outside this lock can go stale
// if a prior settlement confirms in between, and settling the stale figure
// would pay the confirmed portion twice. On refusal nothing changes.
func (g *Gate) TryAdmit(wallet string, now time.Time) (float64, bool) {
	key := NormalizeWallet(wallet)
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	sess, ok := g.store.sessions[key]
	if !ok {
		return 0, false
	}
	if sess.settling {
		return 0, false
	}
	if now.Sub(sess.LastAttemptAt) < g.minInterval {
		return 0, false
	}
	sess.settling = true
	sess.LastAttemptAt = now
	return sess.Unsettled, true
}

// Release clears the wallet's in-flight flag. It is called on every settlement
// exit path; releasing a deleted session is a no-op.
func (g *Gate) Release(wallet string) {
	g.store.Mutate(wallet, func(sess *Session) {
		sess.settling = false
	})
}
