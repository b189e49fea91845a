package inventory

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSplit_Balanced(t *testing.T) {
	base := big.NewInt(500_000_000) // 500 USDC raw, 6 dec
	quote := big.NewInt(500_000_000)
	c := CheckSplit(base, quote, 6, 6, 1, 1)
	assert.True(t, c.Balanced)
	assert.InDelta(t, 0.5, c.BasePctUSD, 1e-9)
}

func TestCheckSplit_Imbalanced(t *testing.T) {
	base := big.NewInt(900_000_000)
	quote := big.NewInt(100_000_000)
	c := CheckSplit(base, quote, 6, 6, 1, 1)
	assert.False(t, c.Balanced)
	assert.InDelta(t, 0.9, c.BasePctUSD, 1e-9)
}

func TestCheckSplit_ZeroTotal(t *testing.T) {
	c := CheckSplit(big.NewInt(0), big.NewInt(0), 6, 6, 1, 1)
	assert.False(t, c.Balanced)
}

func TestShouldCheckThisBlock(t *testing.T) {
	assert.True(t, ShouldCheckThisBlock(100, 10))
	assert.False(t, ShouldCheckThisBlock(101, 10))
	assert.True(t, ShouldCheckThisBlock(5, 0))
}

func TestMaxAlloc(t *testing.T) {
	balance := big.NewInt(1_000_000_000) // 1000 USDC raw, 6 dec
	alloc := MaxAlloc(balance, 6, 0.25)
	assert.InDelta(t, 250.0, alloc, 1e-9)
}
