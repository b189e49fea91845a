// Package rebalance computes a new tick range and the swap amounts
// needed to reach its optimal token ratio for a drifted LP position,
// accounting for funds already held in the wallet.
package rebalance

import (
	"errors"
	"math"

	"github.com/blackholedex/arbengine/internal/amm"
)

// residualEpsilon is the human-unit threshold below which a computed
// swap is treated as zero (no swap needed).
const residualEpsilon = 1e-4

// SwapDirection is which token the plan sells to reach its target ratio.
type SwapDirection int

const (
	NoSwap SwapDirection = iota
	Token0ToToken1
	Token1ToToken0
)

func (d SwapDirection) String() string {
	switch d {
	case Token0ToToken1:
		return "T0->T1"
	case Token1ToToken0:
		return "T1->T0"
	default:
		return "None"
	}
}

// Plan is the rebalance planner's output.
type Plan struct {
	CurrentTick     int
	TargetTickLower int
	TargetTickUpper int
	TargetAmount0   float64
	TargetAmount1   float64
	SwapDirection   SwapDirection
	SwapAmountHuman float64
}

// ErrNoRebalance signals a non-fatal "no rebalance" result: the position
// and the wallet together hold no value, so there is nothing to plan.
var ErrNoRebalance = errors.New("rebalance: non-fatal, no rebalance needed")

// Compute derives the new target range centred on currentTick and the
// swap needed to reach its optimal token ratio, accounting for wallet
// holdings w0/w1 already available to fund the new position.
func Compute(currentTick, tickLower, tickUpper int, lp0, lp1, w0, w1, p0USD, p1USD float64, dec0, dec1 uint8, targetRangeBps int, tickSpacing int) (Plan, error) {
	total0 := lp0 + w0
	total1 := lp1 + w1
	totalValueUSD := total0*p0USD + total1*p1USD

	if totalValueUSD <= 0 {
		return Plan{}, ErrNoRebalance
	}

	halfBpsFraction := (float64(targetRangeBps) / 2) / amm.BasisPointDenominator
	half := int(math.Round(halfBpsFraction / math.Log(amm.TickBase)))
	tLo := floorToSpacing(currentTick-half, tickSpacing)
	tHi := floorToSpacing(currentTick+half, tickSpacing)

	if tHi-tLo < tickSpacing {
		tLo -= tickSpacing
		tHi += tickSpacing
	}

	opt0, opt1 := amm.OptimalAmountsForRange(totalValueUSD, currentTick, tLo, tHi, p0USD, p1USD, dec0, dec1)

	swap0 := total0 - opt0
	swap1 := total1 - opt1

	direction := NoSwap
	var swapAmount float64

	switch {
	case math.Abs(swap0) < residualEpsilon && math.Abs(swap1) < residualEpsilon:
		direction = NoSwap
	case swap0 > 0:
		direction = Token0ToToken1
		swapAmount = math.Min(swap0, total0)
	default:
		direction = Token1ToToken0
		swapAmount = math.Min(-swap1, total1)
	}

	return Plan{
		CurrentTick:     currentTick,
		TargetTickLower: tLo,
		TargetTickUpper: tHi,
		TargetAmount0:   opt0,
		TargetAmount1:   opt1,
		SwapDirection:   direction,
		SwapAmountHuman: swapAmount,
	}, nil
}

func floorToSpacing(tick, spacing int) int {
	if spacing <= 0 {
		return tick
	}
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}
