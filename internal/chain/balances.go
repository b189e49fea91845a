package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StringBalances adapts Reader's common.Address-keyed BalanceOf into the
// string-keyed shape orchestrator.BalanceReader expects, since every other
// collaborator boundary in the core addresses tokens and wallets by the
// decimal/hex strings configuration supplies.
type StringBalances struct {
	Reader Reader
}

// BalanceOf implements orchestrator.BalanceReader.
func (b StringBalances) BalanceOf(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error) {
	return b.Reader.BalanceOf(ctx, common.HexToAddress(tokenAddress), common.HexToAddress(ownerAddress))
}
