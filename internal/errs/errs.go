// Package errs defines the error taxonomy shared across the engine: a
// small set of sentinel errors wrapped with context via fmt.Errorf/%w,
// and a Classify helper that tells the orchestrator whether an error is
// worth retrying.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrStalePrice is returned by an oracle adapter when it cannot
	// produce a fresh quote and would otherwise have silently fallen
	// back to a stale or default value.
	ErrStalePrice = errors.New("oracle: stale or unavailable price")

	// ErrInsufficientBalance indicates a wallet lacks the funds a planned
	// trade requires.
	ErrInsufficientBalance = errors.New("inventory: insufficient balance")

	// ErrUnprofitable indicates a candidate opportunity fails the
	// profit-after-gas check.
	ErrUnprofitable = errors.New("sizer: trade is not profitable after gas")

	// ErrNoLiquidity indicates a pool/route has no usable liquidity for
	// the requested range or amount.
	ErrNoLiquidity = errors.New("pool: insufficient liquidity")

	// ErrUnknownDexFamily indicates a pool or router references a DEX
	// family the engine has no capability profile for.
	ErrUnknownDexFamily = errors.New("pool: unknown dex family")

	// ErrSimulationFailed indicates a pre-flight eth_call simulation of a
	// transaction reverted or errored.
	ErrSimulationFailed = errors.New("chain: simulation failed")

	// ErrTransactionTimeout indicates a submitted transaction was not
	// mined within the configured wait window.
	ErrTransactionTimeout = errors.New("chain: transaction confirmation timed out")

	// ErrCircuitOpen indicates the circuit breaker has tripped and new
	// rebalances are suppressed until it resets.
	ErrCircuitOpen = errors.New("strategy: circuit breaker open")
)

// Severity classifies whether an error should halt the strategy loop for
// a target or merely be reported and retried on the next tick.
type Severity int

const (
	// Transient errors are expected occasionally (a stale quote, a
	// timed-out RPC call) and should be reported and retried.
	Transient Severity = iota
	// Permanent errors indicate a condition retrying will not fix (a
	// misconfigured target, an unknown DEX family) and should halt.
	Permanent
)

func (s Severity) String() string {
	if s == Permanent {
		return "Permanent"
	}
	return "Transient"
}

// Classify inspects err against the known sentinels and returns its
// severity. Unrecognized errors are treated as Transient: the strategy
// loop reports them and keeps monitoring rather than halting on an error
// it cannot identify.
func Classify(err error) Severity {
	if err == nil {
		return Transient
	}
	switch {
	case errors.Is(err, ErrUnknownDexFamily):
		return Permanent
	case errors.Is(err, ErrCircuitOpen):
		return Permanent
	case errors.Is(err, ErrSimulationFailed):
		return Permanent
	default:
		return Transient
	}
}

// Wrap annotates err with op context, preserving errors.Is/As matching
// against the sentinels above.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
