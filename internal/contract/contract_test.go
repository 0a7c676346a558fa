package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenA       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	tokenB       = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	poolAB       = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
)

func validCall() Call {
	return Call{
		Tokens:        []common.Address{tokenA, tokenB},
		Amounts:       []*big.Int{big.NewInt(1_000)},
		MinAmountsOut: []*big.Int{big.NewInt(990)},
		Pools:         []common.Address{poolAB},
		Venues:        []string{"uniswap-v2"},
		Deadline:      big.NewInt(1_900_000_000),
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	e, err := NewEncoder(contractAddr)
	require.NoError(t, err)

	data, err := e.Encode(validCall())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 4)

	method, err := e.abi.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "executeArbitrage", method.Name)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenA, tokenB}, args[0].([]common.Address))
	assert.Equal(t, []string{"uniswap-v2"}, args[4].([]string))
	assert.Equal(t, big.NewInt(1_900_000_000), args[5].(*big.Int))
}

func TestEncodeValidation(t *testing.T) {
	e, err := NewEncoder(contractAddr)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Call)
	}{
		{"single token", func(c *Call) { c.Tokens = c.Tokens[:1] }},
		{"amount length mismatch", func(c *Call) { c.Amounts = nil }},
		{"pool length mismatch", func(c *Call) { c.Pools = append(c.Pools, poolAB) }},
		{"missing deadline", func(c *Call) { c.Deadline = nil }},
		{"zero deadline", func(c *Call) { c.Deadline = big.NewInt(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := validCall()
			tt.mutate(&call)
			_, err := e.Encode(call)
			require.Error(t, err)
		})
	}
}

func TestBuildTransaction(t *testing.T) {
	e, err := NewEncoder(contractAddr)
	require.NoError(t, err)

	req, err := e.BuildTransaction(validCall(), 500_000)
	require.NoError(t, err)
	assert.Equal(t, contractAddr, req.To)
	assert.Equal(t, uint64(500_000), req.GasLimit)
	assert.Zero(t, req.Value.Sign())
}

func TestDeployed(t *testing.T) {
	e, err := NewEncoder(contractAddr)
	require.NoError(t, err)
	assert.True(t, e.Deployed())

	empty, err := NewEncoder(common.Address{})
	require.NoError(t, err)
	assert.False(t, empty.Deployed())
}
