// Package orchestrator drives one ArbTarget's monitor/evaluate/size/
// execute loop, exposing a coarse Bootstrapping/Steady view externally
// while tracking a richer six-state StrategyPhase internally for
// observability.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blackholedex/arbengine/internal/amm"
	"github.com/blackholedex/arbengine/internal/chain"
	"github.com/blackholedex/arbengine/internal/errs"
	"github.com/blackholedex/arbengine/internal/evaluator"
	"github.com/blackholedex/arbengine/internal/inventory"
	"github.com/blackholedex/arbengine/internal/oracle"
	"github.com/blackholedex/arbengine/internal/pool"
	"github.com/blackholedex/arbengine/internal/position"
	"github.com/blackholedex/arbengine/internal/rebalance"
	"github.com/blackholedex/arbengine/internal/sizer"
)

// StrategyPhase refines the orchestrator's externally visible
// Bootstrapping/Steady contract into six operating states, surfaced only
// in structured reports.
type StrategyPhase int

const (
	Initializing StrategyPhase = iota
	ActiveMonitoring
	RebalancingRequired
	WaitingForStability
	ExecutingRebalancing
	Halted
)

func (p StrategyPhase) String() string {
	switch p {
	case Initializing:
		return "Initializing"
	case ActiveMonitoring:
		return "ActiveMonitoring"
	case RebalancingRequired:
		return "RebalancingRequired"
	case WaitingForStability:
		return "WaitingForStability"
	case ExecutingRebalancing:
		return "ExecutingRebalancing"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// Bootstrapping returns the externally-visible coarse state. Run stays in
// Initializing through its first scan, so this covers both.
func (p StrategyPhase) Bootstrapping() bool { return p == Initializing }

// PoolRef ties a pool address to the DexFamily that reads it.
type PoolRef struct {
	Address string
	Family  pool.DexFamily
}

// ArbTarget is one monitored vault: a base/quote pair, the pools to watch
// for arbitrage, and the thresholds gating both the evaluator and the
// rebalance planner.
type ArbTarget struct {
	VaultName              string
	WalletAddress          string
	Base, Quote            pool.TokenMetadata
	Pools                  []PoolRef
	MinWatchSpreadBps      float64
	MinExecutableSpreadBps float64
	MaxSlippagePct         float64
	MaxInventoryRatio      float64
	TargetRangeBps         int
	PollInterval           time.Duration
	InventoryCheckInterval uint64
	GasTokenInUSD          float64
	GasPriceWei            float64
	GasEstimateMult        float64
	MinTradeValueUSD       float64

	// Position is the LP position this target rebalances around. Its
	// zero value (nil Liquidity) is a valid "no managed position yet"
	// state: position.Valuate and rebalance.Compute both treat it as
	// holding no value rather than erroring.
	Position position.Position
}

// StrategyReport is the structured, non-fatal event the orchestrator
// emits for every significant occurrence in the loop.
type StrategyReport struct {
	Timestamp        time.Time
	VaultName        string
	EventType        string
	Message          string
	Phase            StrategyPhase
	GasCostWei       *big.Int
	CumulativeGasWei *big.Int
	ProfitUSD        float64
	NetPnLUSD        float64
	Err              error
	NFTTokenID       *big.Int
	Position         *position.Valuation
}

// CircuitBreaker trips Halted once the number of errors recorded within
// the rolling ErrorWindow reaches ErrorThreshold, or immediately on a
// critical error.
type CircuitBreaker struct {
	ErrorWindow           time.Duration
	ErrorThreshold        int
	LastErrors            []time.Time
	CriticalErrorOccurred bool
}

// RecordError records an error at now, evicts entries older than ErrorWindow,
// and reports whether the strategy should halt.
func (cb *CircuitBreaker) RecordError(now time.Time, critical bool) bool {
	if critical {
		cb.CriticalErrorOccurred = true
		return true
	}
	cutoff := now.Add(-cb.ErrorWindow)
	kept := cb.LastErrors[:0]
	for _, t := range cb.LastErrors {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	cb.LastErrors = append(kept, now)
	return len(cb.LastErrors) >= cb.ErrorThreshold
}

// Reset clears accumulated error state.
func (cb *CircuitBreaker) Reset() {
	cb.LastErrors = nil
	cb.CriticalErrorOccurred = false
}

// ErrorRate returns the current error rate in errors/hour.
func (cb *CircuitBreaker) ErrorRate() float64 {
	if len(cb.LastErrors) == 0 || cb.ErrorWindow <= 0 {
		return 0
	}
	return float64(len(cb.LastErrors)) / cb.ErrorWindow.Hours()
}

// StabilityWindow tracks whether a price has held within Threshold
// (fractional change) for RequiredIntervals consecutive polls. A Runner
// holds one, but tick does not consult it: no trade or rebalance waits on
// it.
type StabilityWindow struct {
	Threshold         float64
	RequiredIntervals int
	LastPrice         *big.Int
	StableCount       int
}

// CheckStability evaluates the latest sqrtPrice against the window and
// returns true once RequiredIntervals consecutive stable polls accrue.
func (sw *StabilityWindow) CheckStability(currentPrice *big.Int) bool {
	if sw.LastPrice == nil || sw.LastPrice.Sign() == 0 {
		sw.LastPrice = currentPrice
		sw.StableCount = 1
		return sw.StableCount >= sw.RequiredIntervals
	}

	diff := new(big.Float).Sub(new(big.Float).SetInt(currentPrice), new(big.Float).SetInt(sw.LastPrice))
	diff.Abs(diff)
	pctChange := new(big.Float).Quo(diff, new(big.Float).SetInt(sw.LastPrice))
	pct, _ := pctChange.Float64()

	sw.LastPrice = currentPrice
	if pct <= sw.Threshold {
		sw.StableCount++
	} else {
		sw.StableCount = 1
	}
	return sw.StableCount >= sw.RequiredIntervals
}

// Reset clears the stability window.
func (sw *StabilityWindow) Reset() {
	sw.LastPrice = nil
	sw.StableCount = 0
}

// Progress returns stability progress as a fraction in [0, 1].
func (sw *StabilityWindow) Progress() float64 {
	if sw.RequiredIntervals == 0 {
		return 0
	}
	p := float64(sw.StableCount) / float64(sw.RequiredIntervals)
	if p > 1 {
		return 1
	}
	return p
}

// BalanceReader is the minimal wallet-balance collaborator the
// orchestrator needs to compute the sizer's MaxAlloc ceiling; satisfied
// by a thin adapter over chain.Reader.BalanceOf.
type BalanceReader interface {
	BalanceOf(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error)
}

// Runner drives one ArbTarget's loop, consuming the core's collaborator
// interfaces and emitting StrategyReport values over reportChan.
type Runner struct {
	Reader        pool.Reader
	Oracle        oracle.Adapter
	Quoter        sizer.Quoter
	Broadcaster   chain.Broadcaster
	Balances      BalanceReader
	Breaker       CircuitBreaker
	Stability     StabilityWindow
	cumulativeGas *big.Int
}

// NewRunner constructs a Runner with a fresh circuit breaker and
// stability window.
func NewRunner(reader pool.Reader, orc oracle.Adapter, quoter sizer.Quoter, broadcaster chain.Broadcaster, balances BalanceReader, breaker CircuitBreaker, stability StabilityWindow) *Runner {
	return &Runner{
		Reader:        reader,
		Oracle:        orc,
		Quoter:        quoter,
		Broadcaster:   broadcaster,
		Balances:      balances,
		Breaker:       breaker,
		Stability:     stability,
		cumulativeGas: big.NewInt(0),
	}
}

// Run executes target's monitor/evaluate/size/execute loop until ctx is
// cancelled or the circuit breaker trips Halted: one goroutine per
// target, one buffered report channel, context-driven cancellation.
func (r *Runner) Run(ctx context.Context, target ArbTarget, reportChan chan<- StrategyReport) error {
	phase := Initializing
	reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "strategy_start", Message: fmt.Sprintf("starting %s", target.VaultName), Phase: phase}

	ticker := time.NewTicker(target.PollInterval)
	defer ticker.Stop()

	var blockNumber uint64

	for {
		select {
		case <-ctx.Done():
			reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "shutdown", Message: "context cancelled", Phase: phase, CumulativeGasWei: r.cumulativeGas}
			return nil
		case <-ticker.C:
			blockNumber++
			if err := r.tick(ctx, target, blockNumber, &phase, reportChan); err != nil {
				if r.Breaker.RecordError(now(), errs.Classify(err) == errs.Permanent) {
					phase = Halted
					reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "halt", Message: err.Error(), Phase: phase, Err: err, CumulativeGasWei: r.cumulativeGas}
					return err
				}
				reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "error", Message: err.Error(), Phase: phase, Err: err}
			}
		}
	}
}

func (r *Runner) tick(ctx context.Context, target ArbTarget, blockNumber uint64, phase *StrategyPhase, reportChan chan<- StrategyReport) error {
	baseUSD, err := r.Oracle.Price(ctx, target.Base.Symbol)
	if err != nil {
		return fmt.Errorf("orchestrator: reference price: %w", err)
	}
	quoteUSD, err := r.Oracle.Price(ctx, target.Quote.Symbol)
	if err != nil {
		return fmt.Errorf("orchestrator: quote reference price: %w", err)
	}

	tokensByAddress := map[string]pool.TokenMetadata{
		strings.ToLower(target.Base.Address):  target.Base,
		strings.ToLower(target.Quote.Address): target.Quote,
	}

	var candidates []evaluator.Candidate
	for _, ref := range target.Pools {
		st, err := pool.Fetch(ctx, r.Reader, ref.Family, ref.Address, tokensByAddress)
		if err != nil {
			return fmt.Errorf("orchestrator: fetching pool %s: %w", ref.Address, err)
		}
		spot, err := pool.SpotPrice(st, target.Base, target.Quote)
		if err != nil {
			continue
		}
		candidates = append(candidates, evaluator.Candidate{Pool: st, Spot: spot})
	}

	th := evaluator.Thresholds{MinWatchSpreadBps: target.MinWatchSpreadBps, MinExecutableSpreadBps: target.MinExecutableSpreadBps}
	opp, ok := evaluator.Best(candidates, baseUSD, th)
	if !ok {
		*phase = ActiveMonitoring
		return nil
	}

	baseRaw, err := r.Balances.BalanceOf(ctx, target.Base.Address, target.WalletAddress)
	if err != nil {
		return fmt.Errorf("orchestrator: fetching balance of %s: %w", target.Base.Symbol, err)
	}
	quoteRaw, err := r.Balances.BalanceOf(ctx, target.Quote.Address, target.WalletAddress)
	if err != nil {
		return fmt.Errorf("orchestrator: fetching balance of %s: %w", target.Quote.Symbol, err)
	}

	if inventory.ShouldCheckThisBlock(blockNumber, target.InventoryCheckInterval) {
		check := inventory.CheckSplit(baseRaw, quoteRaw, target.Base.Decimals, target.Quote.Decimals, baseUSD, quoteUSD)
		reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "monitoring", Message: fmt.Sprintf("inventory check: base=%.1f%% quote=%.1f%%", check.BasePctUSD*100, check.QuotePctUSD*100), Phase: *phase}
		if !check.Balanced {
			*phase = ActiveMonitoring
			reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "monitoring", Message: "inventory split outside [20,80] band, skipping target", Phase: *phase}
			return nil
		}
	}

	// Resolve Token0/Token1 against base/quote by address, independent of
	// their on-chain ordering, then the actual sell side from Direction.
	token0IsBase := strings.EqualFold(opp.Pool.Token0.Address, target.Base.Address)
	token0USD, token1USD := baseUSD, quoteUSD
	token0Raw, token1Raw := baseRaw, quoteRaw
	if !token0IsBase {
		token0USD, token1USD = quoteUSD, baseUSD
		token0Raw, token1Raw = quoteRaw, baseRaw
	}

	baseToken, quoteToken := opp.Pool.Token0, opp.Pool.Token1
	if !token0IsBase {
		baseToken, quoteToken = opp.Pool.Token1, opp.Pool.Token0
	}

	// Direction.Sell means selling base into the pool; Direction.Buy means
	// buying base, i.e. selling quote.
	sellToken, buyToken := baseToken, quoteToken
	sellRaw, sellPriceUSD := baseRaw, baseUSD
	if opp.Direction == evaluator.Buy {
		sellToken, buyToken = quoteToken, baseToken
		sellRaw, sellPriceUSD = quoteRaw, quoteUSD
	}
	maxAlloc := inventory.MaxAlloc(sellRaw, sellToken.Decimals, target.MaxInventoryRatio)

	*phase = RebalancingRequired
	plan, err := sizer.Size(ctx, r.Quoter, sizer.Inputs{
		Opportunity:       opp,
		MaxAlloc:          maxAlloc,
		SlippageTolerance: target.MaxSlippagePct / 100,
		SellPriceUSD:      sellPriceUSD,
		GasTokenInUSD:     target.GasTokenInUSD,
		GasPriceWei:       target.GasPriceWei,
		GasEstimateMult:   target.GasEstimateMult,
		MinTradeValueUSD:  target.MinTradeValueUSD,
	})
	if err != nil {
		// No profitable size at the current inventory ceiling is an
		// expected outcome, not a fault: skip this tick rather than
		// tripping the circuit breaker.
		*phase = ActiveMonitoring
		reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "monitoring", Message: fmt.Sprintf("no trade sized: %v", err), Phase: *phase}
		return nil
	}

	*phase = ExecutingRebalancing
	txHash, err := r.Broadcaster.Execute(ctx, chain.TradePlan{
		PoolAddress:  opp.Pool.Address,
		TokenIn:      sellToken.Address,
		TokenOut:     buyToken.Address,
		AmountInRaw:  amm.ToRaw(plan.OptimalQty, sellToken.Decimals).String(),
		MinAmountOut: amm.ToRaw(plan.MinAmountOut, buyToken.Decimals).String(),
	})
	if err != nil {
		return fmt.Errorf("orchestrator: executing trade: %w", err)
	}

	r.cumulativeGas.Add(r.cumulativeGas, new(big.Int).SetUint64(plan.GasUnits))

	val := position.Valuate(target.Position, opp.Pool, token0USD, token1USD)
	reportChan <- StrategyReport{
		Timestamp:        now(),
		VaultName:        target.VaultName,
		EventType:        "swap_complete",
		Message:          fmt.Sprintf("executed %s tx %s", opp.Direction, txHash.Hex()),
		Phase:            *phase,
		CumulativeGasWei: r.cumulativeGas,
		Position:         &val,
	}
	*phase = ActiveMonitoring

	walletAmount0 := amm.ToHuman(token0Raw, opp.Pool.Token0.Decimals)
	walletAmount1 := amm.ToHuman(token1Raw, opp.Pool.Token1.Decimals)
	lpAmount0 := amm.ToHuman(val.Amount0, opp.Pool.Token0.Decimals)
	lpAmount1 := amm.ToHuman(val.Amount1, opp.Pool.Token1.Decimals)

	rplan, err := rebalance.Compute(opp.Pool.Tick, target.Position.TickLower, target.Position.TickUpper, lpAmount0, lpAmount1, walletAmount0, walletAmount1, token0USD, token1USD, opp.Pool.Token0.Decimals, opp.Pool.Token1.Decimals, target.TargetRangeBps, opp.Pool.TickSpacing)
	if err != nil {
		if err == rebalance.ErrNoRebalance {
			return nil
		}
		return fmt.Errorf("orchestrator: planning rebalance: %w", err)
	}
	if rplan.SwapDirection != rebalance.NoSwap {
		reportChan <- StrategyReport{Timestamp: now(), VaultName: target.VaultName, EventType: "monitoring", Message: fmt.Sprintf("rebalance planned: range [%d,%d] swap %s %.6f", rplan.TargetTickLower, rplan.TargetTickUpper, rplan.SwapDirection, rplan.SwapAmountHuman), Phase: *phase}
	}
	return nil
}

func now() time.Time { return time.Now() }
