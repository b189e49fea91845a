package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/blackholedex/arbengine/internal/pool"
	"github.com/ethereum/go-ethereum/common"
)

// PoolClients resolves a pool address to the ContractClient already
// dialed against it; callers wire one client per pool address the
// orchestrator monitors.
type PoolClients interface {
	Client(poolAddress string) (ContractClient, error)
}

// AlgebraPoolReader implements pool.Reader against Algebra-style
// concentrated-liquidity pools, whose combined state read is exposed as a
// single safelyGetStateOfAMM() call returning
// (sqrtPrice, tick, lastFee, pluginConfig, activeLiquidity, nextTick, previousTick).
type AlgebraPoolReader struct {
	clients PoolClients
}

// NewAlgebraPoolReader constructs a pool.Reader backed by per-pool
// ContractClients.
func NewAlgebraPoolReader(clients PoolClients) *AlgebraPoolReader {
	return &AlgebraPoolReader{clients: clients}
}

func (r *AlgebraPoolReader) state(poolAddress string) ([]interface{}, error) {
	client, err := r.clients.Client(poolAddress)
	if err != nil {
		return nil, fmt.Errorf("chain: no client for pool %s: %w", poolAddress, err)
	}
	out, err := client.Call(nil, "safelyGetStateOfAMM")
	if err != nil {
		return nil, fmt.Errorf("chain: safelyGetStateOfAMM %s: %w", poolAddress, err)
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("chain: safelyGetStateOfAMM %s: expected 7 outputs, got %d", poolAddress, len(out))
	}
	return out, nil
}

func (r *AlgebraPoolReader) PoolSlot0(ctx context.Context, poolAddress string) (*big.Int, int, bool, error) {
	out, err := r.state(poolAddress)
	if err != nil {
		return nil, 0, false, err
	}
	sqrtPrice, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, false, fmt.Errorf("chain: unexpected sqrtPrice type for %s", poolAddress)
	}
	tick, ok := out[1].(*big.Int)
	if !ok {
		return nil, 0, false, fmt.Errorf("chain: unexpected tick type for %s", poolAddress)
	}
	return sqrtPrice, int(tick.Int64()), true, nil
}

func (r *AlgebraPoolReader) PoolLiquidity(ctx context.Context, poolAddress string) (*big.Int, error) {
	out, err := r.state(poolAddress)
	if err != nil {
		return nil, err
	}
	liquidity, ok := out[4].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected activeLiquidity type for %s", poolAddress)
	}
	return liquidity, nil
}

func (r *AlgebraPoolReader) PoolTokens(ctx context.Context, poolAddress string) (string, string, error) {
	client, err := r.clients.Client(poolAddress)
	if err != nil {
		return "", "", fmt.Errorf("chain: no client for pool %s: %w", poolAddress, err)
	}
	token0Out, err := client.Call(nil, "token0")
	if err != nil {
		return "", "", fmt.Errorf("chain: token0 %s: %w", poolAddress, err)
	}
	token1Out, err := client.Call(nil, "token1")
	if err != nil {
		return "", "", fmt.Errorf("chain: token1 %s: %w", poolAddress, err)
	}
	addr0, ok := token0Out[0].(common.Address)
	if !ok {
		return "", "", fmt.Errorf("chain: unexpected token0 type for %s", poolAddress)
	}
	addr1, ok := token1Out[0].(common.Address)
	if !ok {
		return "", "", fmt.Errorf("chain: unexpected token1 type for %s", poolAddress)
	}
	return addr0.Hex(), addr1.Hex(), nil
}

func (r *AlgebraPoolReader) PoolFee(ctx context.Context, poolAddress string) (uint32, error) {
	out, err := r.state(poolAddress)
	if err != nil {
		return 0, err
	}
	fee, ok := out[2].(uint16)
	if !ok {
		return 0, fmt.Errorf("chain: unexpected lastFee type for %s", poolAddress)
	}
	return uint32(fee), nil
}

var _ pool.Reader = (*AlgebraPoolReader)(nil)
