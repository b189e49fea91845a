package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickToSqrtPriceX96_Zero(t *testing.T) {
	x96 := TickToSqrtPriceX96(0)
	q96Val := new(big.Int).Lsh(big.NewInt(1), q96Bits)
	assert.Equal(t, 0, x96.Cmp(q96Val))
}

func TestTickToSqrtPriceX96_Monotonic(t *testing.T) {
	low := TickToSqrtPriceX96(-1000)
	high := TickToSqrtPriceX96(1000)
	assert.Equal(t, -1, low.Cmp(high))
}

func TestSqrtPriceToPrice_RoundTrip(t *testing.T) {
	x96 := TickToSqrtPriceX96(600)
	price := SqrtPriceToPrice(x96)
	f, _ := price.Float64()
	assert.InDelta(t, TickToSqrtPrice(600)*TickToSqrtPrice(600), f, f*1e-6)
}

func TestComputeAmounts_InRange(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(0)
	amount0, amount1, liquidity := ComputeAmounts(sqrtPriceX96, 0, -600, 600, big.NewInt(1_000_000), big.NewInt(1_000_000))
	assert.True(t, liquidity.Sign() > 0)
	assert.True(t, amount0.Sign() >= 0)
	assert.True(t, amount1.Sign() >= 0)
}

func TestComputeAmounts_BelowRange(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(-1000)
	amount0, amount1, liquidity := ComputeAmounts(sqrtPriceX96, -1000, -600, 600, big.NewInt(1_000_000), big.NewInt(1_000_000))
	assert.Equal(t, big.NewInt(1_000_000), amount0)
	assert.Equal(t, big.NewInt(0), amount1)
	assert.True(t, liquidity.Sign() > 0)
}

func TestComputeAmounts_AboveRange(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(1000)
	amount0, amount1, liquidity := ComputeAmounts(sqrtPriceX96, 1000, -600, 600, big.NewInt(1_000_000), big.NewInt(1_000_000))
	assert.Equal(t, big.NewInt(0), amount0)
	assert.Equal(t, big.NewInt(1_000_000), amount1)
	assert.True(t, liquidity.Sign() > 0)
}

func TestCalculateTokenAmountsFromLiquidity_ZeroLiquidity(t *testing.T) {
	a0, a1, err := CalculateTokenAmountsFromLiquidity(big.NewInt(0), TickToSqrtPriceX96(0), -600, 600)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(0), a0)
	assert.Equal(t, big.NewInt(0), a1)
}

func TestCalculateTokenAmountsFromLiquidity_InRange(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(0)
	_, _, liquidity := ComputeAmounts(sqrtPriceX96, 0, -600, 600, big.NewInt(5_000_000), big.NewInt(5_000_000))
	a0, a1, err := CalculateTokenAmountsFromLiquidity(liquidity, sqrtPriceX96, -600, 600)
	assert.NoError(t, err)
	assert.True(t, a0.Sign() > 0)
	assert.True(t, a1.Sign() > 0)
}

func TestTickSpacingForFee(t *testing.T) {
	cases := []struct {
		fee     uint32
		spacing int
		known   bool
	}{
		{100, 1, true},
		{500, 10, true},
		{3000, 60, true},
		{10000, 200, true},
		{777, 10, false},
	}
	for _, c := range cases {
		spacing, known := TickSpacingForFee(c.fee)
		assert.Equal(t, c.spacing, spacing)
		assert.Equal(t, c.known, known)
	}
}

func TestTickToPrice_PriceToTick_RoundTrip(t *testing.T) {
	for _, tick := range []int{-5000, -1, 0, 1, 5000, 200000} {
		price := TickToPrice(tick, 18, 6)
		back := PriceToTick(price, 18, 6)
		assert.InDelta(t, tick, back, 1)
	}
}

func TestToHuman_ToRaw_RoundTrip(t *testing.T) {
	raw := big.NewInt(123_456_789)
	human := ToHuman(raw, 6)
	assert.InDelta(t, 123.456789, human, 1e-9)

	back := ToRaw(human, 6)
	diff := new(big.Int).Sub(back, raw)
	assert.True(t, diff.CmpAbs(big.NewInt(1)) <= 0)
}

func TestToHuman_Nil(t *testing.T) {
	assert.Equal(t, 0.0, ToHuman(nil, 18))
}

func TestOptimalAmountsForRange_BelowRange(t *testing.T) {
	a0, a1 := OptimalAmountsForRange(1000, -1000, -600, 600, 30, 1, 18, 6)
	assert.True(t, a0 > 0)
	assert.Equal(t, 0.0, a1)
}

func TestOptimalAmountsForRange_AboveRange(t *testing.T) {
	a0, a1 := OptimalAmountsForRange(1000, 1000, -600, 600, 30, 1, 18, 6)
	assert.Equal(t, 0.0, a0)
	assert.True(t, a1 > 0)
}

func TestOptimalAmountsForRange_SymmetricCentred(t *testing.T) {
	tCur := PriceToTick(30, 18, 6)
	a0, a1 := OptimalAmountsForRange(1000, tCur, tCur-600, tCur+600, 30, 1, 18, 6)
	value0 := a0 * 30
	value1 := a1 * 1
	assert.InDelta(t, value0, value1, value0*0.05+1)
}

func TestCalculateTickBounds_SymmetricSnap(t *testing.T) {
	lower, upper, err := CalculateTickBounds(105, 1000, 60)
	assert.NoError(t, err)
	assert.Equal(t, int32(0), lower%60)
	assert.Equal(t, int32(0), upper%60)
	assert.True(t, lower < 105)
	assert.True(t, upper > 105)
}

func TestCalculateTickBounds_InvalidSpacing(t *testing.T) {
	_, _, err := CalculateTickBounds(0, 1000, 0)
	assert.Error(t, err)
}

func TestCalculateRebalanceAmounts_Balanced(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(0)
	_, amt, err := CalculateRebalanceAmounts(big.NewInt(1000), big.NewInt(1000), sqrtPriceX96)
	assert.NoError(t, err)
	assert.Equal(t, 0, amt.Sign())
}

func TestCalculateRebalanceAmounts_ExcessToken0(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(0)
	tokenToSwap, amt, err := CalculateRebalanceAmounts(big.NewInt(2000), big.NewInt(1000), sqrtPriceX96)
	assert.NoError(t, err)
	assert.Equal(t, 0, tokenToSwap)
	assert.True(t, amt.Sign() > 0)
}

func TestCalculateRebalanceAmounts_ExcessToken1(t *testing.T) {
	sqrtPriceX96 := TickToSqrtPriceX96(0)
	tokenToSwap, amt, err := CalculateRebalanceAmounts(big.NewInt(1000), big.NewInt(2000), sqrtPriceX96)
	assert.NoError(t, err)
	assert.Equal(t, 1, tokenToSwap)
	assert.True(t, amt.Sign() > 0)
}

func TestCalculateRebalanceAmounts_NilInputs(t *testing.T) {
	_, _, err := CalculateRebalanceAmounts(nil, big.NewInt(1), big.NewInt(1))
	assert.Error(t, err)
}

func TestPositionStatusString(t *testing.T) {
	assert.Equal(t, "InRange", InRange.String())
	assert.Equal(t, "BelowRange", BelowRange.String())
	assert.Equal(t, "AboveRange", AboveRange.String())
}
