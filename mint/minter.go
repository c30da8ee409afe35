// Package mint wraps the on-chain reward token minting used to settle accrued
// yield. Settlement callers depend on the Minter interface; the production
// implementation submits an ERC-20 mint transaction and waits for its receipt.
package mint

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenDecimals is the reward token's atomic-unit scale.
const TokenDecimals = 18

// Receipt summarises the outcome of a submitted mint transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Confirmed   bool
}

// Minter captures the functionality the settlement executor requires from the
// reward token contract.
type Minter interface {
	// Mint submits a mint for the recipient and blocks until the transaction
	// is mined or the context expires.
	Mint(ctx context.Context, recipient common.Address, amount *big.Int) (Receipt, error)
	// Ready reports whether the minter holds working credentials and
	// connectivity. When false, settlement is skipped entirely.
	Ready() bool
}

// FuncMinter adapts callback functions to the Minter interface.
type FuncMinter struct {
	MintFunc  func(ctx context.Context, recipient common.Address, amount *big.Int) (Receipt, error)
	ReadyFunc func() bool
}

// Mint delegates to the configured callback.
func (m FuncMinter) Mint(ctx context.Context, recipient common.Address, amount *big.Int) (Receipt, error) {
	if m.MintFunc == nil {
		return Receipt{}, fmt.Errorf("mint: minter not configured")
	}
	return m.MintFunc(ctx, recipient, amount)
}

// Ready delegates to the configured callback, defaulting to true.
func (m FuncMinter) Ready() bool {
	if m.ReadyFunc == nil {
		return true
	}
	return m.ReadyFunc()
}

// TokenUnits converts a decimal reward amount into the token's atomic units.
func TokenUnits(amount float64) (*big.Int, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("mint: amount must be positive")
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil))
	scaled := new(big.Float).SetPrec(236).Mul(big.NewFloat(amount), scale)
	units, _ := scaled.Int(nil)
	if units.Sign() <= 0 {
		return nil, fmt.Errorf("mint: amount rounds to zero units")
	}
	return units, nil
}
