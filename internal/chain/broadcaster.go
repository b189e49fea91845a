package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// TradePlan is the fully-decided trade the core hands to a Broadcaster.
// The core never signs; it only decides what to execute.
type TradePlan struct {
	PoolAddress  string
	TokenIn      string
	TokenOut     string
	AmountInRaw  string // decimal string, parsed at the broadcaster edge
	MinAmountOut string
	DeadlineUnix int64
}

// Broadcaster executes a TradePlan and returns the submitted transaction
// hash: the core decides what to trade, the broadcaster signs and sends
// it.
type Broadcaster interface {
	Execute(ctx context.Context, plan TradePlan) (common.Hash, error)
}
