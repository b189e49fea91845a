package chain

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

type fakeContractClient struct {
	onCall func(method string, args ...interface{}) ([]interface{}, error)
	addr   common.Address
}

func (f *fakeContractClient) Call(callerAddr *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	return f.onCall(method, args...)
}
func (f *fakeContractClient) Send(txType TxType, gasLimit *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error) {
	return common.Hash{}, nil
}
func (f *fakeContractClient) Abi() abi.ABI                    { return abi.ABI{} }
func (f *fakeContractClient) ContractAddress() common.Address { return f.addr }
func (f *fakeContractClient) TransactionData(hash common.Hash) ([]byte, error) {
	return nil, nil
}
func (f *fakeContractClient) DecodeTransaction(data []byte) (DecodedCall, error) {
	return DecodedCall{}, nil
}
func (f *fakeContractClient) ParseReceipt(receipt *types.Receipt) (string, error) {
	return "", nil
}

type fakePoolClients struct {
	client ContractClient
}

func (f *fakePoolClients) Client(poolAddress string) (ContractClient, error) {
	return f.client, nil
}

func TestAlgebraPoolReader_PoolSlot0(t *testing.T) {
	cc := &fakeContractClient{
		onCall: func(method string, args ...interface{}) ([]interface{}, error) {
			assert.Equal(t, "safelyGetStateOfAMM", method)
			return []interface{}{
				big.NewInt(304014154377809408),
				big.NewInt(-249428),
				uint16(500),
				uint8(2),
				big.NewInt(1514349024952878554),
				big.NewInt(-249398),
				big.NewInt(-249433),
			}, nil
		},
	}
	r := NewAlgebraPoolReader(&fakePoolClients{client: cc})

	sqrtPrice, tick, unlocked, err := r.PoolSlot0(nil, "0xpool")
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(304014154377809408), sqrtPrice)
	assert.Equal(t, -249428, tick)
	assert.True(t, unlocked)
}

func TestAlgebraPoolReader_PoolLiquidity(t *testing.T) {
	cc := &fakeContractClient{
		onCall: func(method string, args ...interface{}) ([]interface{}, error) {
			return []interface{}{
				big.NewInt(1), big.NewInt(2), uint16(500), uint8(2), big.NewInt(999), big.NewInt(3), big.NewInt(4),
			}, nil
		},
	}
	r := NewAlgebraPoolReader(&fakePoolClients{client: cc})
	liquidity, err := r.PoolLiquidity(nil, "0xpool")
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(999), liquidity)
}

func TestAlgebraPoolReader_PoolFee(t *testing.T) {
	cc := &fakeContractClient{
		onCall: func(method string, args ...interface{}) ([]interface{}, error) {
			return []interface{}{
				big.NewInt(1), big.NewInt(2), uint16(500), uint8(2), big.NewInt(999), big.NewInt(3), big.NewInt(4),
			}, nil
		},
	}
	r := NewAlgebraPoolReader(&fakePoolClients{client: cc})
	fee, err := r.PoolFee(nil, "0xpool")
	assert.NoError(t, err)
	assert.Equal(t, uint32(500), fee)
}
