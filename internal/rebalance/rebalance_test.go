package rebalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Apart from the zero-value case, these scenarios use equal decimals on
// both sides so the human price at
// tick 0 is exactly 1 and a centred range implies an even 50/50 USD split,
// isolating the planner's range/swap logic from decimal-scaling effects
// that belong to amm.OptimalAmountsForRange's own tests.

func TestCompute_SymmetricRebalanceAtCentre(t *testing.T) {
	plan, err := Compute(100000, 95000, 105000, 0, 0, 500, 500, 1, 1, 6, 6, 1000, 10)
	assert.NoError(t, err)
	assert.Equal(t, 99500, plan.TargetTickLower)
	assert.Equal(t, 100500, plan.TargetTickUpper)
}

func TestCompute_BalancedWalletCentredTick_NoSwap(t *testing.T) {
	plan, err := Compute(0, -600, 600, 0, 0, 500, 500, 1, 1, 6, 6, 1000, 10)
	assert.NoError(t, err)
	assert.Equal(t, NoSwap, plan.SwapDirection)
}

func TestCompute_ZeroValue_NoRebalance(t *testing.T) {
	_, err := Compute(0, -600, 600, 0, 0, 0, 0, 30, 1, 18, 6, 1000, 10)
	assert.ErrorIs(t, err, ErrNoRebalance)
}

func TestCompute_DegenerateRangeWidens(t *testing.T) {
	// At tick 30 a 1-tick half-width floors both bounds to 0 on spacing 60.
	plan, err := Compute(30, -10, 10, 0, 0, 500, 500, 1, 1, 6, 6, 1, 60)
	assert.NoError(t, err)
	assert.True(t, plan.TargetTickUpper-plan.TargetTickLower >= 60)
}

func TestCompute_Deterministic(t *testing.T) {
	p1, err1 := Compute(100000, 95000, 105000, 100, 200, 500, 500, 1, 1, 6, 6, 1000, 10)
	p2, err2 := Compute(100000, 95000, 105000, 100, 200, 500, 500, 1, 1, 6, 6, 1000, 10)
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, p1, p2)
}

func TestCompute_WalletHoldsImbalancedExcess(t *testing.T) {
	plan, err := Compute(0, -600, 600, 0, 0, 1000, 0, 1, 1, 6, 6, 1000, 10)
	assert.NoError(t, err)
	assert.Equal(t, Token0ToToken1, plan.SwapDirection)
	assert.True(t, plan.SwapAmountHuman > 0)
	assert.True(t, plan.SwapAmountHuman <= 1000)
}

func TestSwapDirectionString(t *testing.T) {
	assert.Equal(t, "None", NoSwap.String())
	assert.Equal(t, "T0->T1", Token0ToToken1.String())
	assert.Equal(t, "T1->T0", Token1ToToken0.String())
}
