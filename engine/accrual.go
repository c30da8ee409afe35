package engine

import (
	"time"

	"earnd/strategy"
)

// secondsPerYear fixes the accrual year at 365 days.
const secondsPerYear = 365 * 24 * 3600

// Calculator derives accrued yield from elapsed time, a fixed strategy blend
// and a global boost multiplier. It is pure: no side effects, no failure
// modes, identical output for identical input.
type Calculator struct {
	table strategy.Table
	boost float64
}

// NewCalculator constructs a calculator over the supplied strategy table.
// Non-positive boosts are treated as a neutral multiplier of one.
func NewCalculator(table strategy.Table, boost float64) Calculator {
	if boost <= 0 {
		boost = 1
	}
	return Calculator{table: table, boost: boost}
}

// EffectiveAPY returns the boosted weighted APY sum. It depends only on static
// configuration and is identical for every call.
func (c Calculator) EffectiveAPY() float64 {
	return c.boost * c.table.BlendedAPY()
}

// Boost returns the configured global multiplier.
func (c Calculator) Boost() float64 {
	return c.boost
}

// Strategies reports the number of strategies in the blend.
func (c Calculator) Strategies() int {
	return c.table.Len()
}

// Accrue computes the yield earned by principal over the elapsed duration.
// Negative elapsed time (clock skew) and negative principal both accrue zero.
func (c Calculator) Accrue(principal float64, elapsed time.Duration) (amount, effectiveAPY float64) {
	effectiveAPY = c.EffectiveAPY()
	if principal <= 0 || elapsed <= 0 {
		return 0, effectiveAPY
	}
	perSecond := effectiveAPY / secondsPerYear
	amount = principal * perSecond * elapsed.Seconds()
	return amount, effectiveAPY
}

// HourlyRate returns the deterministic accrual rate for one hour at the
// effective APY.
func (c Calculator) HourlyRate(principal float64) float64 {
	if principal <= 0 {
		return 0
	}
	return principal * c.EffectiveAPY() / secondsPerYear * 3600
}
