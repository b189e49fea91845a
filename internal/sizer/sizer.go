// Package sizer picks the trade size that maximises profit after price
// impact and gas, subject to inventory and pool-depth limits, via a
// bounded 1-D search over the candidate input amount.
package sizer

import (
	"context"
	"fmt"
	"math"

	"github.com/blackholedex/arbengine/internal/errs"
	"github.com/blackholedex/arbengine/internal/evaluator"
)

// invPhi is 1/phi, the golden-section search's contraction ratio.
const invPhi = 0.6180339887498949

// maxEvaluations is the simulation cap the search terminates at if the
// bracket has not already narrowed below its width tolerance.
const maxEvaluations = 32

// widthToleranceFactor bounds the search: it stops once the bracket width
// falls below widthToleranceFactor * maxAlloc.
const widthToleranceFactor = 1e-6

// Quoter is the external collaborator giving an exact-input quote for a
// candidate trade size. It mirrors the router/DEX quote_exact_in
// interface: multi-hop routing, if any, is hidden behind a single call.
type Quoter interface {
	QuoteExactIn(ctx context.Context, pool evaluator.Opportunity, amountIn float64) (amountOut float64, gasUnits uint64, err error)
}

// Inputs bundles everything the sizer needs for one opportunity.
type Inputs struct {
	Opportunity        evaluator.Opportunity
	MaxAlloc           float64 // inventory_balance * max_inventory_ratio, human units of sell token
	SlippageTolerance  float64
	SellPriceUSD       float64 // USD price of the sell-side token
	GasTokenInUSD      float64
	GasPriceWei        float64
	GasEstimateMult    float64 // multiplier applied to quoted gas units, recommended 1.5-3
	MinTradeValueUSD   float64
}

// Plan is the sizer's output for a profitable opportunity.
type Plan struct {
	OptimalQty       float64
	ExecutionPrice   float64
	PriceImpactBps   float64
	SimulationCount  int
	MinAmountOut     float64
	ExpectedAmount   float64
	GasUnits         uint64
	GasCostUSD       float64
}

// Size runs the bounded search and returns a Plan, or an error classified
// by errs.Classify. A nil error with a zero Plan never happens; "no
// trade" and "skip" outcomes are reported via the sentinel errors in
// internal/errs so the orchestrator can log the precise reason.
func Size(ctx context.Context, q Quoter, in Inputs) (Plan, error) {
	if in.MaxAlloc <= 0 {
		return Plan{}, errs.ErrInsufficientBalance
	}
	if in.SellPriceUSD > 0 && in.MaxAlloc*in.SellPriceUSD < in.MinTradeValueUSD {
		return Plan{}, fmt.Errorf("sizer: max allocation worth below min trade value: %w", errs.ErrInsufficientBalance)
	}

	// Each quote call gets its own retry budget: one retry, then the
	// opportunity is dropped rather than retried indefinitely.
	quoteAt := func(amount float64) (float64, uint64, error) {
		out, gasUnits, err := q.QuoteExactIn(ctx, in.Opportunity, amount)
		if err != nil {
			out, gasUnits, err = q.QuoteExactIn(ctx, in.Opportunity, amount)
			if err != nil {
				return 0, 0, fmt.Errorf("sizer: quote failed after one retry: %w", err)
			}
		}
		return out, gasUnits, nil
	}

	profitAt := func(amount float64) (profit, amountOut float64, gasUnits uint64, err error) {
		amountOut, gasUnits, err = quoteAt(amount)
		if err != nil {
			return 0, 0, 0, err
		}
		gasOutEquivalent := gasCostUSD(gasUnits, in.GasEstimateMult, in.GasPriceWei, in.GasTokenInUSD)
		profit = amountOut - amount*in.Opportunity.Reference - gasOutEquivalent
		return profit, amountOut, gasUnits, nil
	}

	a, b := 0.0, in.MaxAlloc
	tolerance := widthToleranceFactor * in.MaxAlloc

	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)

	profC, _, _, err := profitAt(c)
	if err != nil {
		return Plan{}, errs.Wrap("sizer", err)
	}
	profD, _, _, err := profitAt(d)
	if err != nil {
		return Plan{}, errs.Wrap("sizer", err)
	}
	evaluations := 2

	for (b-a) > tolerance && evaluations < maxEvaluations {
		if profC > profD {
			b = d
			d = c
			profD = profC
			c = b - invPhi*(b-a)
			profC, _, _, err = profitAt(c)
		} else {
			a = c
			c = d
			profC = profD
			d = a + invPhi*(b-a)
			profD, _, _, err = profitAt(d)
		}
		if err != nil {
			return Plan{}, errs.Wrap("sizer", err)
		}
		evaluations++
	}

	bestAmount, bestProfit := c, profC
	if profD > profC {
		bestAmount, bestProfit = d, profD
	}

	if bestProfit <= 0 {
		return Plan{}, fmt.Errorf("sizer: no profitable trade size found: %w", errs.ErrUnprofitable)
	}

	amountOut, gasUnits, err := quoteAt(bestAmount)
	if err != nil {
		return Plan{}, errs.Wrap("sizer", err)
	}
	evaluations++

	executionPrice := 0.0
	if bestAmount > 0 {
		executionPrice = amountOut / bestAmount
	}
	priceImpactBps := 0.0
	if in.Opportunity.Spot != 0 {
		priceImpactBps = math.Abs((executionPrice-in.Opportunity.Spot)/in.Opportunity.Spot) * 10000
	}

	return Plan{
		OptimalQty:      bestAmount,
		ExecutionPrice:  executionPrice,
		PriceImpactBps:  priceImpactBps,
		SimulationCount: evaluations,
		MinAmountOut:    amountOut * (1 - in.SlippageTolerance),
		ExpectedAmount:  amountOut,
		GasUnits:        gasUnits,
		GasCostUSD:      gasCostUSD(gasUnits, in.GasEstimateMult, in.GasPriceWei, in.GasTokenInUSD),
	}, nil
}

// GasCostUSD is the single gas-accounting function used for both swap
// directions, resolving the design note about duplicated gas formulas:
// gas units (adjusted by the estimate multiplier) times wei price times
// the gas token's USD value, converted from wei to whole gas-token units.
func GasCostUSD(gasUnits uint64, gasEstimateMult, gasPriceWei, gasTokenInUSD float64) float64 {
	return gasCostUSD(gasUnits, gasEstimateMult, gasPriceWei, gasTokenInUSD)
}

func gasCostUSD(gasUnits uint64, gasEstimateMult, gasPriceWei, gasTokenInUSD float64) float64 {
	const weiPerToken = 1e18
	adjustedUnits := float64(gasUnits) * gasEstimateMult
	gasTokenSpent := (adjustedUnits * gasPriceWei) / weiPerToken
	return gasTokenSpent * gasTokenInUSD
}
