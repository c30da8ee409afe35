// Package strategy defines the static table of yield strategies the accrual
// engine blends into a single effective rate. The table is fixed at process
// start; weights are not required to sum to one.
package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Strategy describes a single simulated yield source.
type Strategy struct {
	ID     string
	APY    float64
	Weight float64
}

// Table is an immutable ordered set of strategies.
type Table struct {
	entries []Strategy
}

// NewTable constructs a table from the supplied entries. IDs are normalised to
// lower case and must be unique; APY and weight must be non-negative.
func NewTable(entries []Strategy) (Table, error) {
	if len(entries) == 0 {
		return Table{}, fmt.Errorf("strategy: at least one strategy must be configured")
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]Strategy, 0, len(entries))
	for _, entry := range entries {
		id := strings.ToLower(strings.TrimSpace(entry.ID))
		if id == "" {
			return Table{}, fmt.Errorf("strategy: strategy id required")
		}
		if _, dup := seen[id]; dup {
			return Table{}, fmt.Errorf("strategy: duplicate strategy %s", id)
		}
		if entry.APY < 0 {
			return Table{}, fmt.Errorf("strategy: %s apy must be non-negative", id)
		}
		if entry.Weight < 0 {
			return Table{}, fmt.Errorf("strategy: %s weight must be non-negative", id)
		}
		seen[id] = struct{}{}
		out = append(out, Strategy{ID: id, APY: entry.APY, Weight: entry.Weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return Table{entries: out}, nil
}

// Default returns the built-in strategy mix.
func Default() Table {
	table, err := NewTable([]Strategy{
		{ID: "aave_lending", APY: 0.85, Weight: 0.15},
		{ID: "compound", APY: 0.78, Weight: 0.12},
		{ID: "uniswap_v3", APY: 2.45, Weight: 0.18},
		{ID: "curve_stable", APY: 1.25, Weight: 0.10},
		{ID: "yearn_vaults", APY: 1.98, Weight: 0.15},
		{ID: "convex", APY: 3.12, Weight: 0.10},
		{ID: "balancer", APY: 1.67, Weight: 0.08},
		{ID: "sushiswap", APY: 2.89, Weight: 0.05},
		{ID: "mev_arb", APY: 4.25, Weight: 0.03},
		{ID: "flashloan", APY: 5.12, Weight: 0.02},
		{ID: "governance", APY: 0.95, Weight: 0.01},
		{ID: "staking", APY: 1.42, Weight: 0.01},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// BlendedAPY returns the weighted APY sum across all strategies.
func (t Table) BlendedAPY() float64 {
	total := 0.0
	for _, entry := range t.entries {
		total += entry.APY * entry.Weight
	}
	return total
}

// Len reports the number of configured strategies.
func (t Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the configured strategies.
func (t Table) Entries() []Strategy {
	out := make([]Strategy, len(t.entries))
	copy(out, t.entries)
	return out
}
