package sizer

import (
	"context"
	"errors"
	"testing"

	"github.com/blackholedex/arbengine/internal/evaluator"
	"github.com/stretchr/testify/assert"
)

// concaveQuoter models amount_out(a) as a concave function of input size,
// matching a single V3 tick range's AMM quote shape: monotonic
// non-decreasing, flattening as amount grows.
type concaveQuoter struct {
	priceAtZero float64
	depth       float64
	failTimes   int
	calls       int
}

func (q *concaveQuoter) QuoteExactIn(ctx context.Context, opp evaluator.Opportunity, amountIn float64) (float64, uint64, error) {
	q.calls++
	if q.calls <= q.failTimes {
		return 0, 0, errors.New("rpc: transient quote failure")
	}
	out := q.priceAtZero*amountIn - (amountIn*amountIn)/(2*q.depth)
	if out < 0 {
		out = 0
	}
	return out, 150000, nil
}

func TestSize_ProfitableTrade(t *testing.T) {
	q := &concaveQuoter{priceAtZero: 43.2, depth: 1_000_000}
	opp := evaluator.Opportunity{Reference: 43.0, Spot: 42.85}
	in := Inputs{
		Opportunity:       opp,
		MaxAlloc:          10000,
		SlippageTolerance: 0.01,
		SellPriceUSD:      1,
		GasTokenInUSD:     30,
		GasPriceWei:       25e9,
		GasEstimateMult:   1.5,
		MinTradeValueUSD:  1,
	}
	plan, err := Size(context.Background(), q, in)
	assert.NoError(t, err)
	assert.True(t, plan.OptimalQty > 0)
	assert.True(t, plan.SimulationCount <= maxEvaluations+1)
	assert.True(t, plan.MinAmountOut < plan.ExpectedAmount)
}

func TestSize_GasPricedOut_NoTrade(t *testing.T) {
	q := &concaveQuoter{priceAtZero: 43.0015, depth: 50_000_000}
	opp := evaluator.Opportunity{Reference: 43.0, Spot: 43.0}
	in := Inputs{
		Opportunity:       opp,
		MaxAlloc:          1000,
		SlippageTolerance: 0.01,
		SellPriceUSD:      1,
		GasTokenInUSD:     30,
		GasPriceWei:       2000e9,
		GasEstimateMult:   3,
		MinTradeValueUSD:  1,
	}
	_, err := Size(context.Background(), q, in)
	assert.Error(t, err)
}

func TestSize_ZeroInventory_Skipped(t *testing.T) {
	q := &concaveQuoter{priceAtZero: 43, depth: 1000}
	in := Inputs{Opportunity: evaluator.Opportunity{Reference: 43}, MaxAlloc: 0}
	_, err := Size(context.Background(), q, in)
	assert.Error(t, err)
}

func TestSize_BelowMinTradeValue_Skipped(t *testing.T) {
	q := &concaveQuoter{priceAtZero: 43, depth: 1000}
	in := Inputs{
		Opportunity:      evaluator.Opportunity{Reference: 43},
		MaxAlloc:         1,
		SellPriceUSD:     1,
		MinTradeValueUSD: 1000,
	}
	_, err := Size(context.Background(), q, in)
	assert.Error(t, err)
}

func TestSize_RetriesOnceThenDrops(t *testing.T) {
	q := &concaveQuoter{priceAtZero: 43.2, depth: 1_000_000, failTimes: 100}
	in := Inputs{
		Opportunity:      evaluator.Opportunity{Reference: 43, Spot: 42.85},
		MaxAlloc:         1000,
		SellPriceUSD:     1,
		MinTradeValueUSD: 1,
	}
	_, err := Size(context.Background(), q, in)
	assert.Error(t, err)
}

func TestGasCostUSD(t *testing.T) {
	cost := GasCostUSD(150000, 1.5, 25e9, 30.0)
	assert.InDelta(t, 0.16875, cost, 1e-6)
}
