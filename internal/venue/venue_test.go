package venue

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	tokenWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	tokenUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

type fakeAdapter struct {
	kind   types.VenueKind
	out    *big.Int
	err    error
	called int
}

func (f *fakeAdapter) Name() string          { return f.kind.String() }
func (f *fakeAdapter) Kind() types.VenueKind { return f.kind }

func (f *fakeAdapter) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error) {
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	return &types.Quote{
		InputToken:   tokenIn,
		OutputToken:  tokenOut,
		InputAmount:  amountIn,
		OutputAmount: f.out,
		Path:         []common.Address{tokenIn, tokenOut},
		Venue:        f.kind,
	}, nil
}

func (f *fakeAdapter) PoolFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	return common.Address{}, types.ErrNoPool
}

func (f *fakeAdapter) Reserves(ctx context.Context, pool common.Address) ([]*big.Int, error) {
	return nil, errors.New("not implemented")
}

func TestRegistryQuotesSkipsFailingVenues(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.Register(&fakeAdapter{kind: types.VenueUniswapV2, out: big.NewInt(1000)})
	registry.Register(&fakeAdapter{kind: types.VenueSushiswap, err: errors.New("rpc down")})
	registry.Register(&fakeAdapter{kind: types.VenueCurve, out: big.NewInt(990)})

	quotes := registry.Quotes(context.Background(), tokenWETH, tokenUSDC, big.NewInt(1))

	require.Len(t, quotes, 2)
	assert.Equal(t, types.VenueUniswapV2, quotes[0].Venue)
	assert.Equal(t, types.VenueCurve, quotes[1].Venue)
}

func TestRegistryQuotesSortedByVenueKind(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.Register(&fakeAdapter{kind: types.VenueCurve, out: big.NewInt(1)})
	registry.Register(&fakeAdapter{kind: types.VenueUniswapV2, out: big.NewInt(2)})
	registry.Register(&fakeAdapter{kind: types.VenueSushiswap, out: big.NewInt(3)})

	quotes := registry.Quotes(context.Background(), tokenWETH, tokenUSDC, big.NewInt(1))

	require.Len(t, quotes, 3)
	for i := 1; i < len(quotes); i++ {
		assert.Less(t, quotes[i-1].Venue, quotes[i].Venue)
	}
}

func TestRegistryBestQuote(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.Register(&fakeAdapter{kind: types.VenueUniswapV2, out: big.NewInt(1000)})
	registry.Register(&fakeAdapter{kind: types.VenueSushiswap, out: big.NewInt(1050)})

	best, err := registry.BestQuote(context.Background(), tokenWETH, tokenUSDC, big.NewInt(1))

	require.NoError(t, err)
	assert.Equal(t, types.VenueSushiswap, best.Venue)
	assert.Equal(t, big.NewInt(1050), best.OutputAmount)
}

func TestRegistryBestQuoteNoVenues(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.Register(&fakeAdapter{kind: types.VenueUniswapV2, err: errors.New("no pool")})

	_, err := registry.BestQuote(context.Background(), tokenWETH, tokenUSDC, big.NewInt(1))

	require.ErrorIs(t, err, types.ErrNoQuote)
}

func TestRegistryKindsEnumerationOrder(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.Register(&fakeAdapter{kind: types.VenueCurve})
	registry.Register(&fakeAdapter{kind: types.VenueUniswapV2})

	kinds := registry.Kinds()

	assert.Equal(t, []types.VenueKind{types.VenueUniswapV2, types.VenueCurve}, kinds)
}

// fakeCaller answers eth_call by contract address and method selector.
type fakeCaller struct {
	responses map[string][]byte
	errs      map[string]error
}

func callKey(to common.Address, data []byte) string {
	if len(data) < 4 {
		return to.Hex()
	}
	return to.Hex() + ":" + common.Bytes2Hex(data[:4])
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	key := callKey(*msg.To, msg.Data)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	resp, ok := f.responses[key]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func selector(t *testing.T, abiJSON, method string) []byte {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	require.NoError(t, err)
	return parsed.Methods[method].ID
}

func addressWord(addr common.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return word
}

func uintWord(v *big.Int) []byte {
	word := make([]byte, 32)
	v.FillBytes(word)
	return word
}

func TestConstantProductQuote(t *testing.T) {
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	pool := common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")

	getPairSel := selector(t, factoryABIJSON, "getPair")
	getReservesSel := selector(t, pairABIJSON, "getReserves")
	token0Sel := selector(t, pairABIJSON, "token0")

	reserveIn := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))     // 100 WETH
	reserveOut := new(big.Int).Mul(big.NewInt(200_000), big.NewInt(1e6)) // 200k USDC

	caller := &fakeCaller{responses: map[string][]byte{
		factory.Hex() + ":" + common.Bytes2Hex(getPairSel): addressWord(pool),
		pool.Hex() + ":" + common.Bytes2Hex(token0Sel):     addressWord(tokenUSDC),
		pool.Hex() + ":" + common.Bytes2Hex(getReservesSel): append(
			append(uintWord(reserveOut), uintWord(reserveIn)...),
			uintWord(big.NewInt(0))...,
		),
	}}

	adapter, err := NewConstantProductAdapter(
		types.VenueUniswapV2, factory, common.Address{}, caller, nil, zap.NewNop())
	require.NoError(t, err)

	oneETH := new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18))
	quote, err := adapter.Quote(context.Background(), tokenWETH, tokenUSDC, oneETH)
	require.NoError(t, err)

	// out = in*997*rOut / (rIn*1000 + in*997)
	inWithFee := new(big.Int).Mul(oneETH, big.NewInt(997))
	want := new(big.Int).Quo(
		new(big.Int).Mul(inWithFee, reserveOut),
		new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(1000)), inWithFee),
	)

	assert.Equal(t, want, quote.OutputAmount)
	assert.Equal(t, types.VenueUniswapV2, quote.Venue)
	assert.Equal(t, []common.Address{pool}, quote.Pools)
}

func TestConstantProductNoPool(t *testing.T) {
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	getPairSel := selector(t, factoryABIJSON, "getPair")

	caller := &fakeCaller{responses: map[string][]byte{
		factory.Hex() + ":" + common.Bytes2Hex(getPairSel): addressWord(common.Address{}),
	}}

	adapter, err := NewConstantProductAdapter(
		types.VenueSushiswap, factory, common.Address{}, caller, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = adapter.Quote(context.Background(), tokenWETH, tokenUSDC, big.NewInt(1))
	require.ErrorIs(t, err, types.ErrNoPool)
}

func TestConstantProductRejectsNonPositiveInput(t *testing.T) {
	adapter, err := NewConstantProductAdapter(
		types.VenueUniswapV2, common.Address{}, common.Address{}, &fakeCaller{}, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = adapter.Quote(context.Background(), tokenWETH, tokenUSDC, big.NewInt(0))
	require.Error(t, err)

	_, err = adapter.Quote(context.Background(), tokenWETH, tokenUSDC, nil)
	require.Error(t, err)
}

func TestAmountOutConstantProduct(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   int64
		reserveIn  int64
		reserveOut int64
		want       int64
	}{
		{"balanced pool", 1000, 1_000_000, 1_000_000, 996},
		{"tiny input rounds down", 1, 1_000_000, 1_000_000, 0},
		{"skewed pool", 1000, 1_000_000, 2_000_000, 1992},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amountOutConstantProduct(
				big.NewInt(tt.amountIn), big.NewInt(tt.reserveIn), big.NewInt(tt.reserveOut))
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestCurveQuote(t *testing.T) {
	registryAddr := common.HexToAddress("0x90E00ACe148ca3b23Ac1bC8C240C2a7Dd9c2d7f5")
	pool := common.HexToAddress("0xbEbc44782C7dB0a1A60Cb6fe97d0b483032FF1C7")

	findPoolSel := selector(t, curveRegistryABIJSON, "find_pool_for_coins")
	getDySel := selector(t, curvePoolABIJSON, "get_dy")
	coinsSel := selector(t, curvePoolABIJSON, "coins")

	caller := &curveFakeCaller{
		registry:    registryAddr,
		pool:        pool,
		findPoolSel: findPoolSel,
		getDySel:    getDySel,
		coinsSel:    coinsSel,
		coins:       []common.Address{tokenUSDC, tokenWETH},
		dy:          big.NewInt(995_000),
	}

	adapter, err := NewCurveAdapter(registryAddr, caller, nil, zap.NewNop())
	require.NoError(t, err)

	quote, err := adapter.Quote(context.Background(), tokenWETH, tokenUSDC, big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(995_000), quote.OutputAmount)
	assert.Equal(t, types.VenueCurve, quote.Venue)
}

// curveFakeCaller models a registry plus a two-coin pool.
type curveFakeCaller struct {
	registry, pool                  common.Address
	findPoolSel, getDySel, coinsSel []byte
	coins                           []common.Address
	dy                              *big.Int
}

func (c *curveFakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	sel := msg.Data[:4]
	switch {
	case *msg.To == c.registry && string(sel) == string(c.findPoolSel):
		return addressWord(c.pool), nil
	case *msg.To == c.pool && string(sel) == string(c.coinsSel):
		idx := new(big.Int).SetBytes(msg.Data[4:36]).Int64()
		if idx >= int64(len(c.coins)) {
			return nil, errors.New("execution reverted")
		}
		return addressWord(c.coins[idx]), nil
	case *msg.To == c.pool && string(sel) == string(c.getDySel):
		return uintWord(c.dy), nil
	}
	return nil, errors.New("unexpected call")
}
