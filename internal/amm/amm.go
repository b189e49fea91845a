// Package amm implements the pure numerical transforms between ticks,
// prices, sqrt prices, liquidity, and token amounts for concentrated
// liquidity pools (Uniswap V3 / Algebra style). Every function here is
// deterministic and side-effect free: no RPC calls, no logging side
// channels, no global state.
package amm

import (
	"errors"
	"math"
	"math/big"
)

var (
	errInvalidTickSpacing = errors.New("amm: tick spacing must be positive")
	errInvalidRangeWidth  = errors.New("amm: range width must be positive")
	errDegenerateRange    = errors.New("amm: computed tick range is degenerate after spacing snap")
	errNilBalance         = errors.New("amm: balance and sqrt price must be non-nil")
	errNegativeBalance    = errors.New("amm: balance must be non-negative")
)

const (
	// TickBase is the per-tick price ratio: price(t) = TickBase^t.
	TickBase = 1.0001

	// BasisPointDenominator converts a fractional rate to basis points.
	BasisPointDenominator = 10000.0

	// MinTick and MaxTick bound the signed 24-bit tick domain.
	MinTick = -887272
	MaxTick = 887272

	// q96Bits is the Q96 fixed-point shift used by sqrtPriceX96.
	q96Bits = 96

	// underflowSentinel replaces a price that rounds to zero or becomes
	// non-finite so downstream ratios remain defined.
	underflowSentinel = 1e-20

	// logUnderflowTick is the |tick| threshold past which the direct
	// exponentiation form loses precision and the logarithmic form is used.
	logUnderflowTick = 100000
)

var (
	lnTickBase = math.Log(TickBase)
	q96        = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), q96Bits))
)

// PositionStatus classifies an LP position relative to the pool's current tick.
type PositionStatus int

const (
	InRange PositionStatus = iota
	BelowRange
	AboveRange
)

func (s PositionStatus) String() string {
	switch s {
	case InRange:
		return "InRange"
	case BelowRange:
		return "BelowRange"
	case AboveRange:
		return "AboveRange"
	default:
		return "Unknown"
	}
}

func clampTick(t int) (int, bool) {
	if t < MinTick {
		return MinTick, true
	}
	if t > MaxTick {
		return MaxTick, true
	}
	return t, false
}

// TickSpacingForFee maps a pool fee tier (in hundredths of a bip) to its
// tick spacing. Fee tiers outside the known set default to 10.
func TickSpacingForFee(fee uint32) (spacing int, known bool) {
	switch fee {
	case 100:
		return 1, true
	case 500:
		return 10, true
	case 3000:
		return 60, true
	case 10000:
		return 200, true
	default:
		return 10, false
	}
}

// TickToPrice converts a tick to token1-per-token0 price, adjusted for
// token decimals. Ticks outside [MinTick, MaxTick] are clamped.
func TickToPrice(tick int, dec0, dec1 uint8) float64 {
	tick, _ = clampTick(tick)

	var raw float64
	if tick > logUnderflowTick || tick < -logUnderflowTick {
		raw = math.Exp(float64(tick) * lnTickBase)
	} else {
		raw = math.Pow(TickBase, float64(tick))
	}

	p := raw * math.Pow(10, float64(int(dec0)-int(dec1)))
	if p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return underflowSentinel
	}
	return p
}

// PriceToTick is the inverse of TickToPrice, rounded to the nearest tick.
func PriceToTick(price float64, dec0, dec1 uint8) int {
	adjusted := price * math.Pow(10, float64(int(dec1)-int(dec0)))
	t := math.Log(adjusted) / lnTickBase
	return int(math.Round(t))
}

// TickToSqrtPrice returns sqrt(price) = TickBase^(tick/2) as a float64.
func TickToSqrtPrice(tick int) float64 {
	return math.Pow(TickBase, float64(tick)/2)
}

// TickToSqrtPriceX96 returns the Q96 fixed-point sqrt price for a tick,
// matching the representation returned by a pool's slot0/safelyGetStateOfAMM.
func TickToSqrtPriceX96(tick int) *big.Int {
	sqrtP := TickToSqrtPrice(tick)
	f := new(big.Float).SetPrec(256).SetFloat64(sqrtP)
	f.Mul(f, q96)
	out, _ := f.Int(nil)
	return out
}

// SqrtPriceToPrice converts a Q96 sqrtPriceX96 into the raw (undecimalled)
// price (token1 per token0 in base units) as a big.Float.
func SqrtPriceToPrice(sqrtPriceX96 *big.Int) *big.Float {
	ratio := new(big.Float).SetPrec(256).SetInt(sqrtPriceX96)
	ratio.Quo(ratio, q96)
	ratio.Mul(ratio, ratio)
	return ratio
}

// SqrtX96ToPrice converts sqrtPriceX96 into a decimal-adjusted float64 price.
func SqrtX96ToPrice(sqrtPriceX96 *big.Int, dec0, dec1 uint8) float64 {
	raw, _ := SqrtPriceToPrice(sqrtPriceX96).Float64()
	return raw * math.Pow(10, float64(int(dec0)-int(dec1)))
}

// invSqrtX96 returns 1/sqrt(price) for a tick in Q96 units, as a big.Float.
func invSqrtX96(tick int) *big.Float {
	sqrtX96 := TickToSqrtPriceX96(tick)
	num := new(big.Float).SetPrec(256).Set(q96)
	num.Mul(num, q96)
	den := new(big.Float).SetPrec(256).SetInt(sqrtX96)
	return new(big.Float).Quo(num, den)
}

// ComputeAmounts computes, given the pool's current sqrtPriceX96/tick and
// a candidate range, the maximum liquidity obtainable from the supplied
// budgets (amount0Max, amount1Max) and the actual raw token amounts
// consumed at that liquidity.
func ComputeAmounts(sqrtPriceX96 *big.Int, tick, tickLower, tickUpper int, amount0Max, amount1Max *big.Int) (amount0, amount1, liquidity *big.Int) {
	sqrtLowerX96 := TickToSqrtPriceX96(tickLower)
	sqrtUpperX96 := TickToSqrtPriceX96(tickUpper)

	sqrtCurrent := new(big.Float).SetPrec(256).SetInt(sqrtPriceX96)
	sqrtLower := new(big.Float).SetPrec(256).SetInt(sqrtLowerX96)
	sqrtUpper := new(big.Float).SetPrec(256).SetInt(sqrtUpperX96)

	var l0, l1 *big.Float
	switch {
	case tick < tickLower:
		// Below range: only token0 is required, liquidity bounded by amount0.
		l0 = liquidityFromAmount0(amount0Max, sqrtLower, sqrtUpper)
		return amount0Max, big.NewInt(0), roundBigFloat(l0)
	case tick >= tickUpper:
		l1 = liquidityFromAmount1(amount1Max, sqrtLower, sqrtUpper)
		return big.NewInt(0), amount1Max, roundBigFloat(l1)
	default:
		l0 = liquidityFromAmount0(amount0Max, sqrtCurrent, sqrtUpper)
		l1 = liquidityFromAmount1(amount1Max, sqrtLower, sqrtCurrent)
		l := l0
		if l1.Cmp(l0) < 0 {
			l = l1
		}
		liq := roundBigFloat(l)
		a0, a1, _ := CalculateTokenAmountsFromLiquidityFloat(liq, sqrtCurrent, tickLower, tickUpper, tick)
		return a0, a1, liq
	}
}

// liquidityFromAmount0 computes L = amount0 * (sqrtUpper * sqrtLower) / (sqrtUpper - sqrtLower), in Q96 units.
func liquidityFromAmount0(amount0 *big.Int, sqrtA, sqrtB *big.Float) *big.Float {
	lower, upper := sqrtA, sqrtB
	if lower.Cmp(upper) > 0 {
		lower, upper = upper, lower
	}
	diff := new(big.Float).Sub(upper, lower)
	if diff.Sign() == 0 {
		return big.NewFloat(0)
	}
	num := new(big.Float).SetPrec(256).SetInt(amount0)
	num.Mul(num, lower)
	num.Mul(num, upper)
	num.Quo(num, q96)
	return new(big.Float).Quo(num, diff)
}

// liquidityFromAmount1 computes L = amount1 / (sqrtUpper - sqrtLower), in Q96 units.
func liquidityFromAmount1(amount1 *big.Int, sqrtA, sqrtB *big.Float) *big.Float {
	lower, upper := sqrtA, sqrtB
	if lower.Cmp(upper) > 0 {
		lower, upper = upper, lower
	}
	diff := new(big.Float).Sub(upper, lower)
	if diff.Sign() == 0 {
		return big.NewFloat(0)
	}
	num := new(big.Float).SetPrec(256).SetInt(amount1)
	num.Mul(num, q96)
	return new(big.Float).Quo(num, diff)
}

func roundBigFloat(f *big.Float) *big.Int {
	i, _ := f.Int(nil)
	if i == nil {
		return big.NewInt(0)
	}
	return i
}

// CalculateTokenAmountsFromLiquidity computes, given liquidity and the
// pool's current sqrtPriceX96, the raw token0/token1 amounts the position
// would hold for range [tickLower, tickUpper]. The current tick is derived
// from sqrtPriceX96 via its own sqrt-price bounds rather than passed
// separately.
func CalculateTokenAmountsFromLiquidity(liquidity, sqrtPriceX96 *big.Int, tickLower, tickUpper int32) (amount0, amount1 *big.Int, err error) {
	if liquidity == nil || liquidity.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	sqrtCurrent := new(big.Float).SetPrec(256).SetInt(sqrtPriceX96)
	liq := new(big.Float).SetPrec(256).SetInt(liquidity)

	sqrtLowerX96 := TickToSqrtPriceX96(int(tickLower))
	sqrtUpperX96 := TickToSqrtPriceX96(int(tickUpper))
	sqrtLower := new(big.Float).SetPrec(256).SetInt(sqrtLowerX96)
	sqrtUpper := new(big.Float).SetPrec(256).SetInt(sqrtUpperX96)

	current := sqrtCurrent
	switch {
	case current.Cmp(sqrtLower) <= 0:
		current = sqrtLower
	case current.Cmp(sqrtUpper) >= 0:
		current = sqrtUpper
	}

	a0, a1, err := tokenAmountsAt(liq, sqrtLower, current, sqrtUpper)
	return a0, a1, err
}

// CalculateTokenAmountsFromLiquidityFloat is the helper ComputeAmounts uses
// for the in-range case; it takes the current sqrt price explicitly instead
// of re-deriving it and, unlike CalculateTokenAmountsFromLiquidity, does not
// clamp it to the range. tickCurrent is not used.
func CalculateTokenAmountsFromLiquidityFloat(liquidity *big.Int, sqrtCurrent *big.Float, tickLower, tickUpper, tickCurrent int) (amount0, amount1 *big.Int, err error) {
	liq := new(big.Float).SetPrec(256).SetInt(liquidity)
	sqrtLowerX96 := TickToSqrtPriceX96(tickLower)
	sqrtUpperX96 := TickToSqrtPriceX96(tickUpper)
	sqrtLower := new(big.Float).SetPrec(256).SetInt(sqrtLowerX96)
	sqrtUpper := new(big.Float).SetPrec(256).SetInt(sqrtUpperX96)
	return tokenAmountsAt(liq, sqrtLower, sqrtCurrent, sqrtUpper)
}

func tokenAmountsAt(liq, sqrtLower, sqrtCurrent, sqrtUpper *big.Float) (amount0, amount1 *big.Int, err error) {
	// amount0 = L * (1/sqrtCurrent - 1/sqrtUpper); q96/sqrtX96 is already
	// the unscaled 1/sqrt(P), so no further Q96 division is needed.
	invCur := new(big.Float).Quo(new(big.Float).SetPrec(256).SetInt(q96Int()), sqrtCurrent)
	invUp := new(big.Float).Quo(new(big.Float).SetPrec(256).SetInt(q96Int()), sqrtUpper)
	a0 := new(big.Float).Mul(liq, new(big.Float).Sub(invCur, invUp))
	if a0.Sign() < 0 {
		a0.SetInt64(0)
	}

	// amount1 = L * (sqrtCurrent - sqrtLower)
	a1 := new(big.Float).Mul(liq, new(big.Float).Sub(sqrtCurrent, sqrtLower))
	a1.Quo(a1, q96)
	if a1.Sign() < 0 {
		a1.SetInt64(0)
	}

	amount0, _ = a0.Int(nil)
	amount1, _ = a1.Int(nil)
	return amount0, amount1, nil
}

func q96Int() *big.Int {
	i, _ := q96.Int(nil)
	return i
}

// ToHuman converts a raw token amount to a human-scale float64 using its
// decimals. This is one of the two single conversion points the design
// notes require between raw uint256-equivalent amounts and scaled f64.
func ToHuman(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	f := new(big.Float).SetPrec(256).SetInt(raw)
	f.Quo(f, new(big.Float).SetFloat64(math.Pow(10, float64(decimals))))
	out, _ := f.Float64()
	return out
}

// ToRaw converts a human-scale amount back to raw smallest-unit form.
func ToRaw(human float64, decimals uint8) *big.Int {
	f := new(big.Float).SetPrec(256).SetFloat64(human)
	f.Mul(f, new(big.Float).SetFloat64(math.Pow(10, float64(decimals))))
	out, _ := f.Int(nil)
	if out == nil {
		return big.NewInt(0)
	}
	return out
}

// OptimalAmountsForRange computes the (a0, a1) human-scale token split of a
// total USD budget that matches the liquidity ratio required by
// [tickLower, tickUpper] at the pool's current tick. Below range the
// entire budget goes to token0; above range, to token1; a degenerate
// per-token value denominator falls back to an even 50/50 split.
func OptimalAmountsForRange(totalUSD float64, tCur, tickLower, tickUpper int, p0USD, p1USD float64, dec0, dec1 uint8) (a0, a1 float64) {
	switch {
	case tCur < tickLower:
		if p0USD <= 0 {
			return 0, 0
		}
		return totalUSD / p0USD, 0
	case tCur >= tickUpper:
		if p1USD <= 0 {
			return 0, 0
		}
		return 0, totalUSD / p1USD
	}

	sqrtLower := TickToSqrtPrice(tickLower)
	sqrtUpper := TickToSqrtPrice(tickUpper)
	sqrtCur := TickToSqrtPrice(tCur)

	// Per unit of liquidity L=1: amount0PerL = 1/sqrtCur - 1/sqrtUpper, amount1PerL = sqrtCur - sqrtLower.
	amount0PerL := 1/sqrtCur - 1/sqrtUpper
	amount1PerL := sqrtCur - sqrtLower
	if amount0PerL < 0 {
		amount0PerL = 0
	}
	if amount1PerL < 0 {
		amount1PerL = 0
	}

	value0PerL := amount0PerL * p0USD / math.Pow(10, float64(dec0))
	value1PerL := amount1PerL * p1USD / math.Pow(10, float64(dec1))
	sum := value0PerL + value1PerL

	if sum <= 0 || math.IsNaN(sum) {
		return (totalUSD / 2) / nonZero(p0USD), (totalUSD / 2) / nonZero(p1USD)
	}

	ratio0 := value0PerL / sum
	ratio1 := value1PerL / sum

	if p0USD <= 0 {
		a0 = 0
	} else {
		a0 = (totalUSD * ratio0) / p0USD
	}
	if p1USD <= 0 {
		a1 = 0
	} else {
		a1 = (totalUSD * ratio1) / p1USD
	}
	return a0, a1
}

func nonZero(f float64) float64 {
	if f <= 0 {
		return 1
	}
	return f
}

// CalculateTickBounds derives a symmetric [tickLower, tickUpper] range of
// the given width around currentTick, snapped to tickSpacing. rangeWidth
// is expressed in ticks, not basis points.
func CalculateTickBounds(currentTick int32, rangeWidth int, tickSpacing int) (tickLower, tickUpper int32, err error) {
	if tickSpacing <= 0 {
		return 0, 0, errInvalidTickSpacing
	}
	if rangeWidth <= 0 {
		return 0, 0, errInvalidRangeWidth
	}

	half := rangeWidth / 2
	lower := int(currentTick) - half
	upper := int(currentTick) + half

	lower -= mod(lower, tickSpacing)
	upper += (tickSpacing - mod(upper, tickSpacing)) % tickSpacing

	if lower < MinTick {
		lower = MinTick
	}
	if upper > MaxTick {
		upper = MaxTick
	}
	if lower >= upper {
		return 0, 0, errDegenerateRange
	}
	return int32(lower), int32(upper), nil
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// CalculateRebalanceAmounts decides which side of a two-asset balance must
// be sold to fund a symmetric deposit at the pool's current price, and how
// much of it (in raw units of the token being sold). tokenToSwap is 0 when
// token0 (wavaxBalance) is the excess side, 1 when token1 (usdcBalance) is.
func CalculateRebalanceAmounts(wavaxBalance, usdcBalance, sqrtPrice *big.Int) (tokenToSwap int, swapAmount *big.Int, err error) {
	if wavaxBalance == nil || usdcBalance == nil || sqrtPrice == nil {
		return 0, nil, errNilBalance
	}
	if wavaxBalance.Sign() < 0 || usdcBalance.Sign() < 0 {
		return 0, nil, errNegativeBalance
	}

	price := SqrtPriceToPrice(sqrtPrice) // token1 per token0, raw units

	wavaxValueInUsdc := new(big.Float).SetPrec(256).SetInt(wavaxBalance)
	wavaxValueInUsdc.Mul(wavaxValueInUsdc, price)
	usdcValue := new(big.Float).SetPrec(256).SetInt(usdcBalance)

	diff := new(big.Float).Sub(wavaxValueInUsdc, usdcValue)
	if diff.Sign() == 0 {
		return 0, big.NewInt(0), nil
	}

	half := new(big.Float).Quo(diff, big.NewFloat(2))
	if diff.Sign() > 0 {
		// wavax side is heavier in USDC terms: sell half the USDC-value excess, expressed back in wavax.
		amt := new(big.Float).Quo(half, price)
		out, _ := amt.Int(nil)
		return 0, out, nil
	}
	half.Neg(half)
	out, _ := half.Int(nil)
	return 1, out, nil
}
