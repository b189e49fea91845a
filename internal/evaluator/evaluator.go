// Package evaluator computes, for a set of monitored pools, which ones
// deviate from a reference price far enough to be worth sizing a trade
// for.
package evaluator

import (
	"sort"

	"github.com/blackholedex/arbengine/internal/amm"
	"github.com/blackholedex/arbengine/internal/pool"
)

// Direction is the side of the pool an opportunity proposes to trade.
type Direction int

const (
	// Buy means buying base from the pool (pool is cheaper than reference).
	Buy Direction = iota
	// Sell means selling base into the pool (pool is richer than reference).
	Sell
)

func (d Direction) String() string {
	if d == Buy {
		return "Buy"
	}
	return "Sell"
}

// Opportunity is a transient, per-tick snapshot describing one pool's
// deviation from the reference price.
type Opportunity struct {
	Pool         pool.PoolState
	Direction    Direction
	Spot         float64
	Reference    float64
	Spread       float64
	SpreadBps    float64
	FeeBps       float64
	NetProfitBps float64
	PoolFeeTier  uint32
}

// Thresholds bundles the orchestrator-configured gating values for a
// single evaluation pass.
type Thresholds struct {
	MinWatchSpreadBps      float64
	MinExecutableSpreadBps float64
}

// Candidate is one pool fed into Evaluate, paired with its already
// computed spot price (orientation resolved by the caller via
// pool.SpotPrice).
type Candidate struct {
	Pool pool.PoolState
	Spot float64
}

// Evaluate computes spread/fee/net-profit for every candidate and returns
// the qualifying opportunities: those whose |spread_bps| clears
// MinWatchSpreadBps AND whose net_profit_bps clears MinExecutableSpreadBps.
// Results are sorted by the evaluator's tie-break rule: greatest
// net_profit_bps first, ties broken by lower pool fee tier, then by
// ascending pool address.
func Evaluate(candidates []Candidate, reference float64, th Thresholds) []Opportunity {
	var out []Opportunity
	for _, c := range candidates {
		opp := compute(c, reference)
		if abs(opp.SpreadBps) >= th.MinWatchSpreadBps && opp.NetProfitBps >= th.MinExecutableSpreadBps {
			out = append(out, opp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NetProfitBps != out[j].NetProfitBps {
			return out[i].NetProfitBps > out[j].NetProfitBps
		}
		if out[i].PoolFeeTier != out[j].PoolFeeTier {
			return out[i].PoolFeeTier < out[j].PoolFeeTier
		}
		return out[i].Pool.Address < out[j].Pool.Address
	})

	return out
}

// Best returns the single qualifying opportunity the orchestrator should
// act on for this tick, or false if none qualify.
func Best(candidates []Candidate, reference float64, th Thresholds) (Opportunity, bool) {
	all := Evaluate(candidates, reference, th)
	if len(all) == 0 {
		return Opportunity{}, false
	}
	return all[0], true
}

func compute(c Candidate, reference float64) Opportunity {
	spread := c.Spot - reference
	var spreadBps float64
	if reference != 0 {
		spreadBps = (spread / reference) * amm.BasisPointDenominator
	}
	feeBps := float64(c.Pool.Fee) / 100
	netProfitBps := abs(spreadBps) - feeBps

	direction := Sell
	if spreadBps < 0 {
		direction = Buy
	}

	return Opportunity{
		Pool:         c.Pool,
		Direction:    direction,
		Spot:         c.Spot,
		Reference:    reference,
		Spread:       spread,
		SpreadBps:    spreadBps,
		FeeBps:       feeBps,
		NetProfitBps: netProfitBps,
		PoolFeeTier:  c.Pool.Fee,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
