// Package engine implements the yield accrual and settlement core: per-wallet
// sessions, deterministic accrual from elapsed time, throttled mutually
// exclusive settlement and reconciliation of mint results.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"earnd/mint"
	"earnd/observability"
)

// ErrWalletRequired is returned when an operation is invoked without a wallet
// address.
var ErrWalletRequired = errors.New("engine: wallet address required")

// DefaultPrincipal is the simulated principal every session accrues against.
const DefaultPrincipal = 100_000.0

// MetricsSnapshot is the per-wallet view returned by Metrics.
type MetricsSnapshot struct {
	TotalUnsettled      float64
	HourlyRate          float64
	DailyProjection     float64
	ActiveStrategies    int
	PendingEstimate     float64
	EffectiveAPYPercent float64
}

// Engine coordinates the calculator, session store, settlement gate and
// executor behind the three exposed operations.
type Engine struct {
	calc      Calculator
	store     *Store
	gate      *Gate
	exec      *Executor
	minter    mint.Minter
	principal float64
	metrics   *observability.EngineMetrics
	tracer    trace.Tracer
	clock     func() time.Time

	settleTimeout time.Duration

	wg sync.WaitGroup
}

// Option customises the engine instance.
type Option func(*Engine)

// WithMinter supplies the on-chain minting collaborator. Without one (or with
// one that is not ready) accrual continues normally and settlement is never
// attempted.
func WithMinter(m mint.Minter) Option {
	return func(e *Engine) { e.minter = m }
}

// WithPrincipal overrides the simulated principal.
func WithPrincipal(principal float64) Option {
	return func(e *Engine) {
		if principal > 0 {
			e.principal = principal
		}
	}
}

// WithSettlementInterval configures the minimum spacing between settlement
// attempts per wallet.
func WithSettlementInterval(interval time.Duration) Option {
	return func(e *Engine) { e.gate = NewGate(e.store, interval) }
}

// WithSettlementTimeout bounds the on-chain confirmation wait.
func WithSettlementTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.settleTimeout = timeout }
}

// WithClock sets the time source for the engine and all of its components,
// used by tests for deterministic accrual.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock == nil {
			return
		}
		e.clock = clock
		e.store.WithClock(clock)
	}
}

// New constructs an engine over the supplied calculator.
func New(calc Calculator, opts ...Option) *Engine {
	store := NewStore()
	eng := &Engine{
		calc:      calc,
		store:     store,
		gate:      NewGate(store, DefaultMinInterval),
		principal: DefaultPrincipal,
		metrics:   observability.Engine(),
		tracer:    otel.Tracer("earnd/engine"),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	eng.exec = NewExecutor(store, eng.gate, eng.minter, eng.settleTimeout)
	eng.exec.clock = eng.clock
	return eng
}

// MintingEnabled reports whether settlement can currently reach the chain.
func (e *Engine) MintingEnabled() bool {
	return e.minter != nil && e.minter.Ready()
}

// Calculator exposes the engine's accrual calculator.
func (e *Engine) Calculator() Calculator {
	return e.calc
}

// StartSession creates or resets the accrual session for the wallet.
func (e *Engine) StartSession(ctx context.Context, wallet string) error {
	_, span := e.tracer.Start(ctx, "engine.start_session")
	defer span.End()
	key := NormalizeWallet(wallet)
	if key == "" {
		return ErrWalletRequired
	}
	span.SetAttributes(attribute.String("wallet", key))
	e.store.Reset(key)
	e.metrics.SetActiveSessions(e.store.Len())
	return nil
}

// Metrics accrues yield for the wallet since its previous tick, conditionally
// kicks off a settlement attempt and returns a snapshot built from the
// pre-settlement figures. Settlement failures never surface here.
func (e *Engine) Metrics(ctx context.Context, wallet string) (MetricsSnapshot, error) {
	ctx, span := e.tracer.Start(ctx, "engine.metrics")
	defer span.End()
	key := NormalizeWallet(wallet)
	if key == "" {
		return MetricsSnapshot{}, ErrWalletRequired
	}
	span.SetAttributes(attribute.String("wallet", key))

	now := e.clock()
	apy := e.calc.EffectiveAPY()
	sess := e.store.Upsert(key, func(sess *Session) {
		elapsed := now.Sub(sess.LastAccrualAt)
		earned, _ := e.calc.Accrue(e.principal, elapsed)
		sess.Unsettled += earned
		sess.LastAccrualAt = now
	})
	e.metrics.SetActiveSessions(e.store.Len())
	e.metrics.RecordAccrual()

	if e.MintingEnabled() {
		if amount, ok := e.gate.TryAdmit(key, now); ok {
			e.wg.Add(1)
			settleCtx := context.WithoutCancel(ctx)
			go func() {
				defer e.wg.Done()
				e.exec.Settle(settleCtx, key, amount)
			}()
		}
	}

	hourly := e.calc.HourlyRate(e.principal)
	return MetricsSnapshot{
		TotalUnsettled:      sess.Unsettled,
		HourlyRate:          hourly,
		DailyProjection:     hourly * 24,
		ActiveStrategies:    e.calc.Strategies(),
		PendingEstimate:     sess.Unsettled * 0.1,
		EffectiveAPYPercent: apy * 100,
	}, nil
}

// StopSession deletes the wallet's session. Stopping an unknown wallet is a
// successful no-op; an in-flight settlement for it finishes against a missing
// session, which reconciles as a no-op.
func (e *Engine) StopSession(ctx context.Context, wallet string) error {
	_, span := e.tracer.Start(ctx, "engine.stop_session")
	defer span.End()
	key := NormalizeWallet(wallet)
	if key == "" {
		return ErrWalletRequired
	}
	span.SetAttributes(attribute.String("wallet", key))
	e.store.Delete(key)
	e.metrics.SetActiveSessions(e.store.Len())
	return nil
}

// Session returns a snapshot of the wallet's session state.
func (e *Engine) Session(wallet string) (Session, bool) {
	return e.store.Get(wallet)
}

// Drain blocks until all in-flight settlement attempts have finished. Called
// during shutdown so confirmed mints are always reconciled.
func (e *Engine) Drain() {
	e.wg.Wait()
}
