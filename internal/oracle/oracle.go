// Package oracle defines the unified reference-price abstraction the
// core consumes: a single Price(ctx, symbol) call regardless of which
// upstream venue actually serves the quote; each adapter reports its own
// venue via Source().
package oracle

import "context"

// Source identifies which upstream venue an adapter fetches from.
type Source int

const (
	Pyth Source = iota
	Redstone
	Hypercore
)

func (s Source) String() string {
	switch s {
	case Pyth:
		return "Pyth"
	case Redstone:
		return "Redstone"
	case Hypercore:
		return "Hypercore"
	default:
		return "Unknown"
	}
}

// Adapter is the external collaborator interface the orchestrator fetches
// reference prices through. Implementations never silently fall back to a
// cached or default value: a stale or unavailable quote is an error, not
// a zero.
type Adapter interface {
	Price(ctx context.Context, symbol string) (float64, error)
	Source() Source
}

// Quote is a priced, sourced snapshot suitable for logging or composing
// into a Market Context.
type Quote struct {
	Symbol string
	Price  float64
	Source Source
}
