package dexclient

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/blackholedex/arbengine/internal/chain"
	"github.com/blackholedex/arbengine/internal/evaluator"
	"github.com/blackholedex/arbengine/internal/pool"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

type fakeContractClient struct {
	addr      common.Address
	onCall    func(method string, args ...interface{}) ([]interface{}, error)
	onSend    func(method string, args ...interface{}) (common.Hash, error)
	sentCalls []string
}

func (f *fakeContractClient) Call(callerAddr *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	return f.onCall(method, args...)
}
func (f *fakeContractClient) Send(txType chain.TxType, gasLimit *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error) {
	f.sentCalls = append(f.sentCalls, method)
	if f.onSend != nil {
		return f.onSend(method, args...)
	}
	return common.Hash{0x1}, nil
}
func (f *fakeContractClient) Abi() abi.ABI                    { return abi.ABI{} }
func (f *fakeContractClient) ContractAddress() common.Address { return f.addr }
func (f *fakeContractClient) TransactionData(hash common.Hash) ([]byte, error) {
	return nil, nil
}
func (f *fakeContractClient) DecodeTransaction(data []byte) (chain.DecodedCall, error) {
	return chain.DecodedCall{}, nil
}
func (f *fakeContractClient) ParseReceipt(receipt *types.Receipt) (string, error) {
	return "", nil
}

type fakeTxListener struct{}

func (fakeTxListener) WaitForTransaction(ctx context.Context, txHash common.Hash) (*chain.TxReceipt, error) {
	return &chain.TxReceipt{TxHash: txHash, Status: 1}, nil
}

type fakeClients struct {
	byAddress map[string]chain.ContractClient
}

func (f *fakeClients) Client(address string) (chain.ContractClient, error) {
	return f.byAddress[address], nil
}

const (
	routerAddr = "0x1111111111111111111111111111111111111111"
	token0Addr = "0x2222222222222222222222222222222222222222"
	token1Addr = "0x3333333333333333333333333333333333333333"
	poolAddr   = "0x4444444444444444444444444444444444444444"
)

func testOpportunity() evaluator.Opportunity {
	return evaluator.Opportunity{
		Pool: pool.PoolState{
			Address: poolAddr,
			Token0:  pool.TokenMetadata{Symbol: "WAVAX", Address: token0Addr, Decimals: 18},
			Token1:  pool.TokenMetadata{Symbol: "USDC", Address: token1Addr, Decimals: 6},
			Fee:     500,
		},
	}
}

func TestClient_QuoteExactIn(t *testing.T) {
	router := &fakeContractClient{addr: common.HexToAddress(routerAddr)}
	router.onCall = func(method string, args ...interface{}) ([]interface{}, error) {
		assert.Equal(t, "getAmountsOut", method)
		return []interface{}{[]*big.Int{big.NewInt(1e9), big.NewInt(25_000_000)}}, nil
	}

	clients := &fakeClients{byAddress: map[string]chain.ContractClient{routerAddr: router}}
	c := New(clients, routerAddr, common.HexToAddress("0xabc"), nil, fakeTxListener{})

	amountOut, gasUnits, err := c.QuoteExactIn(context.Background(), testOpportunity(), 1.0)
	assert.NoError(t, err)
	assert.InDelta(t, 25.0, amountOut, 1e-9)
	assert.Equal(t, uint64(150000), gasUnits)
}

func TestClient_QuoteExactIn_EmptyResult(t *testing.T) {
	router := &fakeContractClient{addr: common.HexToAddress(routerAddr)}
	router.onCall = func(method string, args ...interface{}) ([]interface{}, error) {
		return []interface{}{}, nil
	}
	clients := &fakeClients{byAddress: map[string]chain.ContractClient{routerAddr: router}}
	c := New(clients, routerAddr, common.HexToAddress("0xabc"), nil, fakeTxListener{})

	_, _, err := c.QuoteExactIn(context.Background(), testOpportunity(), 1.0)
	assert.Error(t, err)
}

func TestClient_Swap(t *testing.T) {
	router := &fakeContractClient{addr: common.HexToAddress(routerAddr)}
	token0 := &fakeContractClient{addr: common.HexToAddress(token0Addr)}

	clients := &fakeClients{byAddress: map[string]chain.ContractClient{
		routerAddr: router,
		token0Addr: token0,
	}}
	c := New(clients, routerAddr, common.HexToAddress("0xabc"), nil, fakeTxListener{})

	params := SwapParams{
		AmountIn:     big.NewInt(1_000_000),
		AmountOutMin: big.NewInt(990_000),
		Routes: []Route{{
			Pair: common.HexToAddress(poolAddr),
			From: common.HexToAddress(token0Addr),
			To:   common.HexToAddress(token1Addr),
		}},
		To:       common.HexToAddress("0xabc"),
		Deadline: big.NewInt(1999999999),
	}

	hash, err := c.Swap(context.Background(), params)
	assert.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	assert.Equal(t, []string{"approve"}, token0.sentCalls)
	assert.Equal(t, []string{"swapExactTokensForTokens"}, router.sentCalls)
}

func TestClient_Swap_NoRoutes(t *testing.T) {
	c := New(&fakeClients{byAddress: map[string]chain.ContractClient{}}, routerAddr, common.HexToAddress("0xabc"), nil, fakeTxListener{})
	_, err := c.Swap(context.Background(), SwapParams{})
	assert.Error(t, err)
}
