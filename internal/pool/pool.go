// Package pool encapsulates the read-only on-chain state of a
// concentrated-liquidity pool and presents it to higher layers with tick
// spacing already resolved. A PoolState value is immutable; refreshing a
// pool means replacing it wholesale, never mutating it in place.
package pool

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/blackholedex/arbengine/internal/amm"
)

// DexFamily models a DEX's capability profile so the evaluator and sizer
// can iterate over pools from every DEX uniformly instead of running one
// duplicated loop per DEX name.
type DexFamily struct {
	Name        string
	FeeLayout   FeeLayout
	RouterShape RouterShape
}

// FeeLayout describes how a DEX family expresses its fee tiers.
type FeeLayout int

const (
	// FixedTierFeeLayout means the pool's fee is one of a small fixed set
	// (100/500/3000/10000), resolved to tick spacing via amm.TickSpacingForFee.
	FixedTierFeeLayout FeeLayout = iota
	// DynamicFeeLayout means the pool's effective fee can change block to
	// block (Algebra-style dynamic fee pools); the fee is read fresh on
	// every fetch rather than assumed constant from the fee tier.
	DynamicFeeLayout
)

// RouterShape describes how swaps are routed for a DEX family.
type RouterShape int

const (
	// SingleHopRouter means the router's quote/swap calls take a single
	// pool directly.
	SingleHopRouter RouterShape = iota
	// AggregatorRouter means the family is only reachable through a DEX
	// aggregator that may split across multiple pools internally.
	AggregatorRouter
)

// Reader is the external RPC collaborator the pool model reads through.
// The core never dials a client directly; it is handed one.
type Reader interface {
	PoolSlot0(ctx context.Context, poolAddress string) (sqrtPriceX96 *big.Int, tick int, unlocked bool, err error)
	PoolLiquidity(ctx context.Context, poolAddress string) (*big.Int, error)
	PoolTokens(ctx context.Context, poolAddress string) (token0, token1 string, err error)
	PoolFee(ctx context.Context, poolAddress string) (fee uint32, err error)
}

// TokenMetadata is the (address, decimals, symbol) triple the core
// receives from configuration. The core never pattern-matches on known
// addresses; every caller supplies these explicitly.
type TokenMetadata struct {
	Symbol   string
	Address  string
	Decimals uint8
}

// PoolState is the immutable, read-only snapshot of a pool's on-chain
// state at the moment it was fetched.
type PoolState struct {
	Address      string
	Family       DexFamily
	Token0       TokenMetadata
	Token1       TokenMetadata
	Fee          uint32
	TickSpacing  int
	FeeTierKnown bool
	Liquidity    *big.Int
	SqrtPriceX96 *big.Int
	Tick         int
	Unlocked     bool
}

// Fetch reads a pool's current state via the supplied Reader and resolves
// its tick spacing from its fee tier. token0/token1 metadata must be
// supplied by the caller (configuration), keyed by the addresses read
// from chain, since the core never hard-codes symbol tables.
func Fetch(ctx context.Context, r Reader, family DexFamily, poolAddress string, tokensByAddress map[string]TokenMetadata) (PoolState, error) {
	sqrtPriceX96, tick, unlocked, err := r.PoolSlot0(ctx, poolAddress)
	if err != nil {
		return PoolState{}, fmt.Errorf("pool: slot0 %s: %w", poolAddress, err)
	}
	liquidity, err := r.PoolLiquidity(ctx, poolAddress)
	if err != nil {
		return PoolState{}, fmt.Errorf("pool: liquidity %s: %w", poolAddress, err)
	}
	token0Addr, token1Addr, err := r.PoolTokens(ctx, poolAddress)
	if err != nil {
		return PoolState{}, fmt.Errorf("pool: tokens %s: %w", poolAddress, err)
	}
	fee, err := r.PoolFee(ctx, poolAddress)
	if err != nil {
		return PoolState{}, fmt.Errorf("pool: fee %s: %w", poolAddress, err)
	}

	spacing, known := amm.TickSpacingForFee(fee)
	if !known {
		log.Printf("⚠️  pool %s: unknown fee tier %d, defaulting tick spacing to %d", poolAddress, fee, spacing)
	}

	token0, ok := tokensByAddress[strings.ToLower(token0Addr)]
	if !ok {
		token0 = TokenMetadata{Address: token0Addr}
	}
	token1, ok := tokensByAddress[strings.ToLower(token1Addr)]
	if !ok {
		token1 = TokenMetadata{Address: token1Addr}
	}

	return PoolState{
		Address:      poolAddress,
		Family:       family,
		Token0:       token0,
		Token1:       token1,
		Fee:          fee,
		TickSpacing:  spacing,
		FeeTierKnown: known,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPriceX96,
		Tick:         tick,
		Unlocked:     unlocked,
	}, nil
}

// SpotPrice returns P(quote/base), orienting the pool's token0/token1
// price so the caller never has to know which side of the pool base and
// quote fell on.
func SpotPrice(p PoolState, base, quote TokenMetadata) (float64, error) {
	addrBase, addrQuote := strings.ToLower(base.Address), strings.ToLower(quote.Address)
	addr0, addr1 := strings.ToLower(p.Token0.Address), strings.ToLower(p.Token1.Address)

	price1Per0 := amm.SqrtX96ToPrice(p.SqrtPriceX96, p.Token0.Decimals, p.Token1.Decimals)

	switch {
	case addrBase == addr0 && addrQuote == addr1:
		return price1Per0, nil
	case addrBase == addr1 && addrQuote == addr0:
		if price1Per0 == 0 {
			return 0, fmt.Errorf("pool: %s zero price, cannot invert", p.Address)
		}
		return 1 / price1Per0, nil
	default:
		return 0, fmt.Errorf("pool: %s does not contain base=%s quote=%s", p.Address, base.Symbol, quote.Symbol)
	}
}

// TickSpacingForFee re-exports amm.TickSpacingForFee for callers that only
// import the pool package.
func TickSpacingForFee(fee uint32) (int, bool) {
	return amm.TickSpacingForFee(fee)
}
