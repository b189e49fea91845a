// Package position models an LP position's state, valuation, and
// in/out-of-range classification relative to its pool's current tick.
package position

import (
	"math/big"

	"github.com/blackholedex/arbengine/internal/amm"
	"github.com/blackholedex/arbengine/internal/pool"
)

// fullRangeProxy is an order-of-magnitude proxy for "full range" used only
// by ConcentrationFactor, as documented in the design notes: it is an
// informational scalar, never a sizing input.
const fullRangeProxy = 200000

// Position is an LP position's identity and durable on-chain state.
type Position struct {
	TokenID     string
	Owner       string
	PoolAddress string
	TickLower   int
	TickUpper   int
	Liquidity   *big.Int
	Owed0       *big.Int
	Owed1       *big.Int
}

// Status classifies a position relative to the pool's current tick.
type Status = amm.PositionStatus

const (
	InRange    = amm.InRange
	BelowRange = amm.BelowRange
	AboveRange = amm.AboveRange
)

// Classify returns the position's status at the given current tick.
func Classify(p Position, tCur int) Status {
	switch {
	case tCur < p.TickLower:
		return BelowRange
	case tCur >= p.TickUpper:
		return AboveRange
	default:
		return InRange
	}
}

// Valuation is the USD-denominated snapshot of a position at a given tick.
type Valuation struct {
	Amount0   *big.Int
	Amount1   *big.Int
	Value0USD float64
	Value1USD float64
	TotalUSD  float64
	Pct0      float64
	Pct1      float64
	Status    Status
}

// Valuate computes a position's token amounts and USD valuation at the
// pool's current sqrt price.
func Valuate(p Position, st pool.PoolState, p0USD, p1USD float64) Valuation {
	status := Classify(p, st.Tick)

	amount0, amount1, err := amm.CalculateTokenAmountsFromLiquidity(p.Liquidity, st.SqrtPriceX96, int32(p.TickLower), int32(p.TickUpper))
	if err != nil {
		amount0, amount1 = big.NewInt(0), big.NewInt(0)
	}

	human0 := amm.ToHuman(amount0, st.Token0.Decimals)
	human1 := amm.ToHuman(amount1, st.Token1.Decimals)

	value0 := human0 * p0USD
	value1 := human1 * p1USD
	total := value0 + value1

	var pct0, pct1 float64
	if total > 0 {
		pct0 = value0 / total
		pct1 = value1 / total
	}

	return Valuation{
		Amount0:   amount0,
		Amount1:   amount1,
		Value0USD: value0,
		Value1USD: value1,
		TotalUSD:  total,
		Pct0:      pct0,
		Pct1:      pct1,
		Status:    status,
	}
}

// Delta is a position's directional exposure to the token1/token0 price,
// normalised to [-1, 1], plus an informational concentration factor.
type Delta struct {
	Delta               float64
	HedgeNotionalUSD    float64
	ConcentrationFactor float64
}

// ComputeDelta returns a position's delta and hedge notional at tCur.
// delta = (value1 - value0) / total when total > 0, else 0.
func ComputeDelta(p Position, st pool.PoolState, p0USD, p1USD float64) Delta {
	v := Valuate(p, st, p0USD, p1USD)

	var delta float64
	if v.TotalUSD > 0 {
		delta = (v.Value1USD - v.Value0USD) / v.TotalUSD
	}

	width := p.TickUpper - p.TickLower
	var concentration float64
	if width > 0 {
		concentration = float64(fullRangeProxy) / float64(width)
	}

	return Delta{
		Delta:               delta,
		HedgeNotionalUSD:    v.TotalUSD * delta,
		ConcentrationFactor: concentration,
	}
}
