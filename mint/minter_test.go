package mint

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTokenUnits(t *testing.T) {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

	units, err := TokenUnits(1)
	if err != nil {
		t.Fatalf("convert 1: %v", err)
	}
	if units.Cmp(one) != 0 {
		t.Fatalf("expected %s, got %s", one, units)
	}

	units, err = TokenUnits(1.5)
	if err != nil {
		t.Fatalf("convert 1.5: %v", err)
	}
	want := new(big.Int).Mul(one, big.NewInt(3))
	want.Div(want, big.NewInt(2))
	if units.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, units)
	}
}

func TestTokenUnitsRejectsUnusableAmounts(t *testing.T) {
	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := TokenUnits(amount); err == nil {
			t.Fatalf("expected error for %f", amount)
		}
	}
	// Dust below one atomic unit has no representation.
	if _, err := TokenUnits(1e-19); err == nil {
		t.Fatal("expected error for sub-unit dust")
	}
}

func TestFuncMinterDefaults(t *testing.T) {
	var m FuncMinter
	if !m.Ready() {
		t.Fatal("zero-value FuncMinter must report ready")
	}
	if _, err := m.Mint(context.Background(), common.Address{}, big.NewInt(1)); err == nil {
		t.Fatal("expected error when no mint callback is configured")
	}
}
