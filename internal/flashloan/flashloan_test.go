package flashloan

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	poolAddr     = common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	receiverAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	assetAddr    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

type stubCaller struct {
	result []byte
	err    error
	lastTo common.Address
}

func (c *stubCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.lastTo = *msg.To
	return c.result, c.err
}

func newManager(t *testing.T, caller ContractCaller) *Manager {
	t.Helper()
	m, err := NewManager(poolAddr, receiverAddr, caller, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestFeeIsNineBps(t *testing.T) {
	m := newManager(t, &stubCaller{})

	tests := []struct {
		amount int64
		want   int64
	}{
		{10_000, 9},
		{1_000_000, 900},
		{1_000, 0}, // rounds down
	}

	for _, tt := range tests {
		got := m.Fee(big.NewInt(tt.amount))
		assert.Equal(t, tt.want, got.Int64())
	}
}

func TestMaxBorrowableReadsPoolBalance(t *testing.T) {
	balance := make([]byte, 32)
	big.NewInt(123_456).FillBytes(balance)
	caller := &stubCaller{result: balance}

	m := newManager(t, caller)
	got, err := m.MaxBorrowable(context.Background(), assetAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(123_456), got)
	assert.Equal(t, assetAddr, caller.lastTo, "balance is read on the asset contract")
}

func TestBuildLoanTransaction(t *testing.T) {
	m := newManager(t, &stubCaller{})

	req, err := m.BuildLoanTransaction(assetAddr, big.NewInt(1_000_000), []byte{0x01})
	require.NoError(t, err)

	assert.Equal(t, poolAddr, req.To)
	assert.Zero(t, req.Value.Sign())
	require.GreaterOrEqual(t, len(req.Data), 4)

	// The payload decodes back to a zero-debt single-asset loan.
	method, err := m.poolABI.MethodById(req.Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "flashLoan", method.Name)

	args, err := method.Inputs.Unpack(req.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, receiverAddr, args[0].(common.Address))
	assert.Equal(t, []common.Address{assetAddr}, args[1].([]common.Address))
	assert.Equal(t, []*big.Int{big.NewInt(1_000_000)}, args[2].([]*big.Int))
	modes := args[3].([]*big.Int)
	require.Len(t, modes, 1, "modes must request zero debt")
	assert.Zero(t, modes[0].Sign(), "modes must request zero debt")
}

func TestBuildLoanTransactionRejectsNonPositive(t *testing.T) {
	m := newManager(t, &stubCaller{})

	_, err := m.BuildLoanTransaction(assetAddr, big.NewInt(0), nil)
	require.Error(t, err)

	_, err = m.BuildLoanTransaction(assetAddr, nil, nil)
	require.Error(t, err)
}
