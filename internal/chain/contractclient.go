// Package chain wraps go-ethereum's RPC client and ABI machinery behind
// the collaborator interfaces the core consumes: a read-only Reader, a
// transaction Broadcaster, and the lower-level ContractClient each of
// those builds on.
package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TxType distinguishes legacy from EIP-1559 transactions when sending.
type TxType int

const (
	Standard TxType = iota
	DynamicFee
)

// DecodedCall is the result of decoding a transaction's input data against
// a contract's ABI.
type DecodedCall struct {
	MethodName string
	Inputs     map[string]interface{}
}

// ContractClient is the single-contract RPC facade every on-chain
// collaborator in the engine is built from: one contract address, one
// ABI, one ethclient connection.
type ContractClient interface {
	Call(callerAddr *common.Address, method string, args ...interface{}) ([]interface{}, error)
	Send(txType TxType, gasLimit *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error)
	Abi() abi.ABI
	ContractAddress() common.Address
	TransactionData(hash common.Hash) ([]byte, error)
	DecodeTransaction(data []byte) (DecodedCall, error)
	ParseReceipt(receipt *types.Receipt) (string, error)
}

type ethContractClient struct {
	client  *ethclient.Client
	address common.Address
	abi     abi.ABI
	chainID *big.Int
}

// NewContractClient constructs a ContractClient bound to one contract
// address and ABI over an existing ethclient connection.
func NewContractClient(client *ethclient.Client, address common.Address, contractABI abi.ABI) ContractClient {
	return &ethContractClient{client: client, address: address, abi: contractABI}
}

func (c *ethContractClient) Abi() abi.ABI                    { return c.abi }
func (c *ethContractClient) ContractAddress() common.Address { return c.address }

// Call performs a read-only eth_call against method, unpacking the
// returned bytes into the types the ABI outputs declare. callerAddr may
// be nil for calls that do not depend on msg.sender.
func (c *ethContractClient) Call(callerAddr *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	ctx := context.Background()

	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: packing call to %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: input}
	if callerAddr != nil {
		msg.From = *callerAddr
	}

	out, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: calling %s on %s: %w", method, c.address.Hex(), classifyCallErr(err))
	}

	unpacked, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpacking result of %s: %w", method, err)
	}
	return unpacked, nil
}

// Send builds, signs, and submits a transaction invoking method on this
// contract. A nil gasLimit triggers automatic estimation.
func (c *ethContractClient) Send(txType TxType, gasLimit *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error) {
	ctx := context.Background()

	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: packing send to %s: %w", method, err)
	}

	if c.chainID == nil {
		chainID, err := c.client.NetworkID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("chain: fetching chain id: %w", err)
		}
		c.chainID = chainID
	}

	nonce, err := c.client.PendingNonceAt(ctx, *from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: fetching nonce for %s: %w", from.Hex(), err)
	}

	if gasLimit == nil {
		estimated, err := c.client.EstimateGas(ctx, ethereum.CallMsg{From: *from, To: &c.address, Data: input})
		if err != nil {
			return common.Hash{}, fmt.Errorf("chain: estimating gas for %s: %w", method, err)
		}
		gasLimit = new(big.Int).SetUint64(estimated)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: suggesting gas price: %w", err)
	}

	var tx *types.Transaction
	switch txType {
	case DynamicFee:
		tipCap, err := c.client.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("chain: suggesting gas tip cap: %w", err)
		}
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   c.chainID,
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: gasPrice,
			Gas:       gasLimit.Uint64(),
			To:        &c.address,
			Data:      input,
		})
	default:
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit.Uint64(),
			To:       &c.address,
			Data:     input,
		})
	}

	signer := types.LatestSignerForChainID(c.chainID)
	signedTx, err := types.SignTx(tx, signer, privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: signing %s: %w", method, err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("chain: broadcasting %s: %w", method, err)
	}

	return signedTx.Hash(), nil
}

// TransactionData fetches the raw input calldata of a mined transaction.
func (c *ethContractClient) TransactionData(hash common.Hash) ([]byte, error) {
	tx, _, err := c.client.TransactionByHash(context.Background(), hash)
	if err != nil {
		return nil, fmt.Errorf("chain: fetching transaction %s: %w", hash.Hex(), err)
	}
	return tx.Data(), nil
}

// DecodeTransaction decodes calldata against this contract's ABI,
// returning the method name and named arguments.
func (c *ethContractClient) DecodeTransaction(data []byte) (DecodedCall, error) {
	if len(data) < 4 {
		return DecodedCall{}, fmt.Errorf("chain: calldata too short to contain a method selector")
	}

	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return DecodedCall{}, fmt.Errorf("chain: resolving method selector: %w", err)
	}

	args := map[string]interface{}{}
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return DecodedCall{}, fmt.Errorf("chain: unpacking arguments for %s: %w", method.Name, err)
	}

	return DecodedCall{MethodName: method.Name, Inputs: args}, nil
}

// ParseReceipt decodes every log in receipt against this contract's ABI
// and returns the decoded events as a JSON string, suitable for a
// persistence or reporting layer to store verbatim.
func (c *ethContractClient) ParseReceipt(receipt *types.Receipt) (string, error) {
	type decodedEvent struct {
		Name string                 `json:"name"`
		Args map[string]interface{} `json:"args"`
	}
	var events []decodedEvent

	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 {
			continue
		}
		ev, err := c.abi.EventByID(lg.Topics[0])
		if err != nil {
			continue
		}
		args := map[string]interface{}{}
		if len(lg.Data) > 0 {
			if err := ev.Inputs.UnpackIntoMap(args, lg.Data); err != nil {
				continue
			}
		}
		events = append(events, decodedEvent{Name: ev.Name, Args: args})
	}

	out, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("chain: marshalling parsed receipt: %w", err)
	}
	return string(out), nil
}
