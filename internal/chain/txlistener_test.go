package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTxReceiptBigInts(t *testing.T) {
	r := &TxReceipt{EffectiveGasPrice: "25000000000", GasUsed: "150000"}
	gasPrice, gasUsed, err := ParseTxReceiptBigInts(r)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(25000000000), gasPrice)
	assert.Equal(t, big.NewInt(150000), gasUsed)
}

func TestParseTxReceiptBigInts_InvalidValue(t *testing.T) {
	r := &TxReceipt{EffectiveGasPrice: "not-a-number", GasUsed: "150000"}
	_, _, err := ParseTxReceiptBigInts(r)
	assert.Error(t, err)
}
