package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"earnd/mint"
	"earnd/observability"
)

// Outcome classifies the result of a settlement attempt.
type Outcome string

const (
	// OutcomeConfirmed means the mint was mined successfully and the settled
	// amount was deducted from the wallet's unsettled balance.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeRejected means the transaction was mined but reverted, or the
	// recipient address was unusable. The balance is preserved.
	OutcomeRejected Outcome = "rejected"
	// OutcomeTransient covers RPC errors and timeouts; the balance is
	// preserved and a future attempt will retry it.
	OutcomeTransient Outcome = "transient_error"
	// OutcomeSkipped means there was nothing to settle.
	OutcomeSkipped Outcome = "skipped"
)

// DefaultMintTimeout bounds the on-chain confirmation wait.
const DefaultMintTimeout = 120 * time.Second

// Executor runs admitted settlement attempts: it converts the accrued amount
// to token units, invokes the minter and reconciles the session store with the
// result. Failures are recovered locally and never reach the metrics caller.
type Executor struct {
	store   *Store
	gate    *Gate
	minter  mint.Minter
	timeout time.Duration
	metrics *observability.EngineMetrics
	clock   func() time.Time
}

// NewExecutor constructs a settlement executor.
func NewExecutor(store *Store, gate *Gate, minter mint.Minter, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultMintTimeout
	}
	return &Executor{
		store:   store,
		gate:    gate,
		minter:  minter,
		timeout: timeout,
		metrics: observability.Engine(),
		clock:   time.Now,
	}
}

// Settle executes one admitted settlement attempt for the wallet. The gate is
// released on every exit path; forgetting it would wedge the wallet's
// settlement permanently.
func (x *Executor) Settle(ctx context.Context, wallet string, amount float64) Outcome {
	defer x.gate.Release(wallet)

	start := x.clock()
	attempt := uuid.New().String()
	log := slog.With(
		slog.String("component", "settlement"),
		slog.String("attempt", attempt),
		slog.String("wallet", NormalizeWallet(wallet)),
	)

	if amount <= 0 {
		x.metrics.ObserveSettlement(string(OutcomeSkipped), x.clock().Sub(start))
		return OutcomeSkipped
	}
	units, err := mint.TokenUnits(amount)
	if err != nil {
		// Dust below one atomic unit stays pending for a later attempt.
		x.metrics.ObserveSettlement(string(OutcomeSkipped), x.clock().Sub(start))
		return OutcomeSkipped
	}
	recipient := NormalizeWallet(wallet)
	if !common.IsHexAddress(recipient) {
		log.Warn("settlement recipient is not a valid address")
		x.metrics.RecordError("bad_address")
		x.metrics.ObserveSettlement(string(OutcomeRejected), x.clock().Sub(start))
		return OutcomeRejected
	}
	if x.minter == nil || !x.minter.Ready() {
		x.metrics.ObserveSettlement(string(OutcomeSkipped), x.clock().Sub(start))
		return OutcomeSkipped
	}

	mintCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	receipt, err := x.minter.Mint(mintCtx, common.HexToAddress(recipient), units)
	switch {
	case err != nil:
		reason := "mint"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(mintCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		log.Error("settlement attempt failed", "error", err, "amount", amount)
		x.metrics.RecordError(reason)
		x.metrics.ObserveSettlement(string(OutcomeTransient), x.clock().Sub(start))
		return OutcomeTransient
	case !receipt.Confirmed:
		log.Warn("mint transaction reverted", "tx", receipt.TxHash, "amount", amount)
		x.metrics.RecordError("reverted")
		x.metrics.ObserveSettlement(string(OutcomeRejected), x.clock().Sub(start))
		return OutcomeRejected
	}

	// Subtract the settled amount rather than zeroing: accrual added while the
	// mint was in flight must survive the reconciliation.
	x.store.Mutate(wallet, func(sess *Session) {
		sess.Unsettled -= amount
		if sess.Unsettled < 0 {
			sess.Unsettled = 0
		}
	})
	log.Info("settlement confirmed",
		"tx", receipt.TxHash,
		"block", receipt.BlockNumber,
		"amount", amount,
	)
	x.metrics.ObserveSettlement(string(OutcomeConfirmed), x.clock().Sub(start))
	return OutcomeConfirmed
}
