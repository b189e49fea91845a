package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/blackholedex/arbengine/internal/errs"
)

// Reader is the §6 RPC reader collaborator: the minimal read surface the
// core needs from an EVM node, independent of any particular contract.
type Reader interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	GetFeeEstimate(ctx context.Context) (maxFeePerGas, maxPriorityFeePerGas *big.Int, err error)
	BalanceOf(ctx context.Context, token, addr common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TransactionCount(ctx context.Context, addr common.Address) (uint64, error)
	Call(ctx context.Context, addr common.Address, calldata []byte) ([]byte, error)
	GetLogs(ctx context.Context, filter ethereum.FilterQuery) ([]types.Log, error)
}

// balanceOfSelector and allowanceSelector pack balanceOf/allowance
// calldata without depending on a full ERC20 ABI JSON; these four-byte
// selectors are stable across the standard.
var (
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}
	allowanceSelector = []byte{0xdd, 0x62, 0xed, 0x3e}
)

type ethReader struct {
	client *ethclient.Client
}

// NewReader wraps an existing ethclient connection as a Reader.
func NewReader(client *ethclient.Client) Reader {
	return &ethReader{client: client}
}

func (r *ethReader) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain: get block number: %w", err)
	}
	return n, nil
}

func (r *ethReader) GetGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: suggest gas price: %w", err)
	}
	return price, nil
}

func (r *ethReader) GetFeeEstimate(ctx context.Context) (*big.Int, *big.Int, error) {
	tip, err := r.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: suggest gas tip cap: %w", err)
	}
	head, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: fetch latest header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, nil, fmt.Errorf("chain: chain has no EIP-1559 base fee")
	}
	maxFee := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	return maxFee, tip, nil
}

func (r *ethReader) BalanceOf(ctx context.Context, token, addr common.Address) (*big.Int, error) {
	calldata := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(addr.Bytes(), 32)...)
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balanceOf %s on %s: %w", addr.Hex(), token.Hex(), classifyCallErr(err))
	}
	return new(big.Int).SetBytes(out), nil
}

func (r *ethReader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	calldata := append(append([]byte{}, allowanceSelector...), common.LeftPadBytes(owner.Bytes(), 32)...)
	calldata = append(calldata, common.LeftPadBytes(spender.Bytes(), 32)...)
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: allowance %s/%s on %s: %w", owner.Hex(), spender.Hex(), token.Hex(), classifyCallErr(err))
	}
	return new(big.Int).SetBytes(out), nil
}

func (r *ethReader) TransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	n, err := r.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("chain: transaction count for %s: %w", addr.Hex(), err)
	}
	return n, nil
}

func (r *ethReader) Call(ctx context.Context, addr common.Address, calldata []byte) ([]byte, error) {
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", addr.Hex(), classifyCallErr(err))
	}
	return out, nil
}

func (r *ethReader) GetLogs(ctx context.Context, filter ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := r.client.FilterLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("chain: get logs: %w", err)
	}
	return logs, nil
}

// classifyCallErr wraps an eth_call failure with errs.ErrSimulationFailed
// when the node reports a revert or an invalid target, so errs.Classify
// can mark it Permanent instead of letting the orchestrator retry a call
// that will never succeed.
func classifyCallErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "invalid address") || strings.Contains(msg, "no contract code") {
		return fmt.Errorf("%w: %v", errs.ErrSimulationFailed, err)
	}
	return err
}
