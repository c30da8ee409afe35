package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryAdmitRequiresSession(t *testing.T) {
	store := NewStore()
	gate := NewGate(store, 5*time.Second)
	if _, ok := gate.TryAdmit("0xmissing", time.Now()); ok {
		t.Fatal("admission must fail for an unknown wallet")
	}
}

func TestTryAdmitThrottlesByInterval(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	store := NewStore()
	store.WithClock(func() time.Time { return base })
	gate := NewGate(store, 5*time.Second)

	store.GetOrCreate("0xwallet")

	// The session was just created, so the throttle window is still open.
	if _, ok := gate.TryAdmit("0xwallet", base.Add(3*time.Second)); ok {
		t.Fatal("admission inside the minimum interval must be refused")
	}
	if _, ok := gate.TryAdmit("0xwallet", base.Add(5*time.Second)); !ok {
		t.Fatal("admission at the minimum interval must succeed")
	}
	gate.Release("0xwallet")
	if _, ok := gate.TryAdmit("0xwallet", base.Add(6*time.Second)); ok {
		t.Fatal("the throttle clock must restart from the admitted attempt")
	}
	if _, ok := gate.TryAdmit("0xwallet", base.Add(10*time.Second)); !ok {
		t.Fatal("admission after another full interval must succeed")
	}
}

func TestTryAdmitBlocksWhileInFlight(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	store := NewStore()
	store.WithClock(func() time.Time { return base })
	gate := NewGate(store, 5*time.Second)

	store.GetOrCreate("0xwallet")
	if _, ok := gate.TryAdmit("0xwallet", base.Add(5*time.Second)); !ok {
		t.Fatal("first admission must succeed")
	}
	if _, ok := gate.TryAdmit("0xwallet", base.Add(time.Hour)); ok {
		t.Fatal("a second admission while one is in flight must be refused")
	}
	gate.Release("0xwallet")
	if _, ok := gate.TryAdmit("0xwallet", base.Add(time.Hour)); !ok {
		t.Fatal("admission after release must succeed")
	}
}

func TestTryAdmitReturnsBalanceAtAdmission(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	store := NewStore()
	store.WithClock(func() time.Time { return base })
	gate := NewGate(store, 5*time.Second)

	store.GetOrCreate("0xwallet")
	store.Mutate("0xwallet", func(sess *Session) { sess.Unsettled = 42 })

	amount, ok := gate.TryAdmit("0xwallet", base.Add(time.Minute))
	if !ok {
		t.Fatal("admission failed")
	}
	if amount != 42 {
		t.Fatalf("admitted amount must equal the balance under the lock, got %f", amount)
	}
	gate.Release("0xwallet")

	// A settlement that confirmed in the meantime must shrink the next
	// admitted amount.
	store.Mutate("0xwallet", func(sess *Session) { sess.Unsettled = 1 })
	amount, ok = gate.TryAdmit("0xwallet", base.Add(2*time.Minute))
	if !ok {
		t.Fatal("second admission failed")
	}
	if amount != 1 {
		t.Fatalf("expected the current balance 1, got %f", amount)
	}
}

func TestTryAdmitIsMutuallyExclusive(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	store := NewStore()
	store.WithClock(func() time.Time { return base })
	gate := NewGate(store, 5*time.Second)
	store.GetOrCreate("0xwallet")

	attempt := base.Add(time.Minute)
	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := gate.TryAdmit("0xwallet", attempt); ok {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	if admitted != 1 {
		t.Fatalf("expected exactly one admission, got %d", admitted)
	}
}

func TestReleaseOnDeletedSessionIsNoOp(t *testing.T) {
	store := NewStore()
	gate := NewGate(store, 5*time.Second)
	store.GetOrCreate("0xwallet")
	store.Delete("0xwallet")
	gate.Release("0xwallet")
}
