package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TxReceipt is the minimal mined-transaction summary the broadcaster
// hands back to the core after confirmation.
type TxReceipt struct {
	TxHash            common.Hash
	Status            uint64
	BlockNumber       uint64
	EffectiveGasPrice string
	GasUsed           string
}

// TxListener polls for a submitted transaction's receipt, used by the
// broadcaster collaborator to confirm a prepared trade actually landed.
type TxListener interface {
	WaitForTransaction(ctx context.Context, txHash common.Hash) (*TxReceipt, error)
}

type pollingTxListener struct {
	client       *ethclient.Client
	pollInterval time.Duration
	timeout      time.Duration
}

// Option configures a TxListener constructed by NewTxListener.
type Option func(*pollingTxListener)

// WithPollInterval sets how often the listener re-checks for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(l *pollingTxListener) { l.pollInterval = d }
}

// WithTimeout bounds how long the listener waits before giving up.
func WithTimeout(d time.Duration) Option {
	return func(l *pollingTxListener) { l.timeout = d }
}

// NewTxListener constructs a TxListener polling an existing ethclient
// connection, defaulting to a 2s poll interval and a 60s timeout.
func NewTxListener(client *ethclient.Client, opts ...Option) TxListener {
	l := &pollingTxListener{
		client:       client,
		pollInterval: 2 * time.Second,
		timeout:      60 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WaitForTransaction polls for txHash's receipt until it is mined, the
// listener's timeout elapses, or ctx is cancelled.
func (l *pollingTxListener) WaitForTransaction(ctx context.Context, txHash common.Hash) (*TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := l.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return &TxReceipt{
				TxHash:            txHash,
				Status:            receipt.Status,
				BlockNumber:       receipt.BlockNumber.Uint64(),
				EffectiveGasPrice: bigOrZero(receipt.EffectiveGasPrice).String(),
				GasUsed:           new(big.Int).SetUint64(receipt.GasUsed).String(),
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("chain: fetching receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("chain: timed out waiting for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// ParseTxReceiptBigInts parses a TxReceipt's string-carried numerics back
// into big.Int at the point of use, using big.Int.SetString's base-0
// auto-detection.
func ParseTxReceiptBigInts(r *TxReceipt) (effectiveGasPrice, gasUsed *big.Int, err error) {
	effectiveGasPrice, ok := new(big.Int).SetString(r.EffectiveGasPrice, 0)
	if !ok {
		return nil, nil, fmt.Errorf("chain: parsing effective gas price %q", r.EffectiveGasPrice)
	}
	gasUsed, ok = new(big.Int).SetString(r.GasUsed, 0)
	if !ok {
		return nil, nil, fmt.Errorf("chain: parsing gas used %q", r.GasUsed)
	}
	return effectiveGasPrice, gasUsed, nil
}
