package position

import (
	"math/big"
	"testing"

	"github.com/blackholedex/arbengine/internal/amm"
	"github.com/blackholedex/arbengine/internal/pool"
	"github.com/stretchr/testify/assert"
)

func testPool(tick int) pool.PoolState {
	return pool.PoolState{
		Address:      "0xpool",
		Token0:       pool.TokenMetadata{Symbol: "WAVAX", Decimals: 18},
		Token1:       pool.TokenMetadata{Symbol: "USDC", Decimals: 6},
		SqrtPriceX96: amm.TickToSqrtPriceX96(tick),
		Tick:         tick,
	}
}

func TestClassify(t *testing.T) {
	p := Position{TickLower: 95000, TickUpper: 105000}
	assert.Equal(t, BelowRange, Classify(p, 90000))
	assert.Equal(t, InRange, Classify(p, 100000))
	assert.Equal(t, AboveRange, Classify(p, 110000))
}

func TestValuate_AboveRange_AllToken1(t *testing.T) {
	p := Position{TickLower: 95000, TickUpper: 105000, Liquidity: big.NewInt(1_000_000_000_000)}
	st := testPool(110000)
	v := Valuate(p, st, 30, 1)
	assert.Equal(t, AboveRange, v.Status)
	assert.Equal(t, big.NewInt(0), v.Amount0)
	assert.True(t, v.Amount1.Sign() > 0)
}

func TestValuate_ValueSumsToTotal(t *testing.T) {
	p := Position{TickLower: -600, TickUpper: 600, Liquidity: big.NewInt(5_000_000_000_000)}
	st := testPool(0)
	v := Valuate(p, st, 30, 1)
	assert.InDelta(t, v.TotalUSD, v.Value0USD+v.Value1USD, 1e-9)
}

func TestComputeDelta_Bounds(t *testing.T) {
	p := Position{TickLower: 95000, TickUpper: 105000, Liquidity: big.NewInt(1_000_000_000_000)}

	above := ComputeDelta(p, testPool(110000), 30, 1)
	assert.InDelta(t, 1.0, above.Delta, 1e-9)

	below := ComputeDelta(p, testPool(90000), 30, 1)
	assert.InDelta(t, -1.0, below.Delta, 1e-9)
}

func TestComputeDelta_ZeroTotalIsZero(t *testing.T) {
	p := Position{TickLower: 95000, TickUpper: 105000, Liquidity: big.NewInt(0)}
	d := ComputeDelta(p, testPool(100000), 30, 1)
	assert.Equal(t, 0.0, d.Delta)
}

func TestComputeDelta_ConcentrationFactor(t *testing.T) {
	p := Position{TickLower: -100000, TickUpper: 100000, Liquidity: big.NewInt(1)}
	d := ComputeDelta(p, testPool(0), 30, 1)
	assert.InDelta(t, 1.0, d.ConcentrationFactor, 1e-9)
}
