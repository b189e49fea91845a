// Package inventory tracks a wallet's per-token balances and enforces the
// double-leg mode's base/quote balance-split check before the evaluator
// runs.
package inventory

import (
	"math/big"

	"github.com/blackholedex/arbengine/internal/amm"
)

// Snapshot is a per-wallet, immutable view passed by value into the
// rebalance planner and the inventory check. The planner never reads
// inventory through a side channel; every call receives one of these.
type Snapshot struct {
	BaseRaw          *big.Int
	QuoteRaw         *big.Int
	NativeGasBalance *big.Int
	Nonce            uint64
}

// MaxAlloc returns the sell-side allocation ceiling for the sizer:
// inventory_balance * max_inventory_ratio, in human units.
func MaxAlloc(balanceRaw *big.Int, decimals uint8, maxInventoryRatio float64) float64 {
	return amm.ToHuman(balanceRaw, decimals) * maxInventoryRatio
}

// BalanceCheck is the result of the double-leg inventory split check.
type BalanceCheck struct {
	BasePctUSD  float64
	QuotePctUSD float64
	Balanced    bool
}

// CheckSplit requires the wallet's USD-value split between base and quote
// to lie in [20%, 80%]; outside that band the orchestrator must skip the
// target for this tick.
func CheckSplit(baseRaw, quoteRaw *big.Int, baseDecimals, quoteDecimals uint8, baseUSD, quoteUSD float64) BalanceCheck {
	const lowerBound, upperBound = 0.20, 0.80

	baseValue := amm.ToHuman(baseRaw, baseDecimals) * baseUSD
	quoteValue := amm.ToHuman(quoteRaw, quoteDecimals) * quoteUSD
	total := baseValue + quoteValue

	if total <= 0 {
		return BalanceCheck{Balanced: false}
	}

	basePct := baseValue / total
	quotePct := quoteValue / total

	return BalanceCheck{
		BasePctUSD:  basePct,
		QuotePctUSD: quotePct,
		Balanced:    basePct >= lowerBound && basePct <= upperBound,
	}
}

// ShouldCheckThisBlock reports whether the double-leg balance check is due
// on blockNumber, per the configured interval (default 10 blocks).
func ShouldCheckThisBlock(blockNumber uint64, intervalBlocks uint64) bool {
	if intervalBlocks == 0 {
		return true
	}
	return blockNumber%intervalBlocks == 0
}
