package strategy

import (
	"context"
	"math/big"
	"testing"

	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	wethAsset = types.TrackedAsset{
		Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Symbol:   "WETH",
		Decimals: 18,
	}
	usdcAsset = types.TrackedAsset{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Symbol:   "USDC",
		Decimals: 6,
	}
	daiAsset = types.TrackedAsset{
		Address:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
		Symbol:   "DAI",
		Decimals: 18,
	}
)

type stubOracle struct{ prices map[string]float64 }

func (o *stubOracle) PriceUSD(ctx context.Context, asset types.TrackedAsset) (float64, error) {
	p, ok := o.prices[asset.Symbol]
	if !ok {
		return 0, types.ErrPriceUnavailable
	}
	return p, nil
}

// stubQuoter maps a hop to a fixed multiplier on the input amount, scaled
// by a precision shift so cross-decimal hops stay realistic.
type stubQuoter struct {
	// rates maps "SYMIN>SYMOUT" to numerator/denominator applied to the
	// input, after decimal rescaling.
	rates map[string]func(in *big.Int) *big.Int
}

func (q *stubQuoter) BestQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error) {
	key := tokenIn.Hex() + ">" + tokenOut.Hex()
	fn, ok := q.rates[key]
	if !ok {
		return nil, types.ErrNoQuote
	}
	return &types.Quote{
		InputToken:   tokenIn,
		OutputToken:  tokenOut,
		InputAmount:  amountIn,
		OutputAmount: fn(amountIn),
		Venue:        types.VenueUniswapV2,
	}, nil
}

func hop(from, to types.TrackedAsset) string {
	return from.Address.Hex() + ">" + to.Address.Hex()
}

func opp(id string, gross, net float64, pathLen int) *scanner.ArbitrageOpportunity {
	path := make([]types.TrackedAsset, pathLen)
	return &scanner.ArbitrageOpportunity{
		ID:             id,
		GrossProfitUSD: gross,
		NetProfitUSD:   net,
		Path:           path,
	}
}

func newTestEngine(quoter Quoter, oracle PriceOracle, minProfit float64) *Engine {
	return New(Config{
		MinProfitUSD: minProfit,
		MaxHops:      3,
		Assets:       []types.TrackedAsset{wethAsset, usdcAsset, daiAsset},
		Logger:       zap.NewNop(),
	}, quoter, oracle)
}

func TestEvaluatePicksHighestNetProfit(t *testing.T) {
	e := newTestEngine(nil, nil, 0.10)

	best := e.EvaluateOpportunities([]*scanner.ArbitrageOpportunity{
		opp("a", 1.0, 0.99, 2),
		opp("b", 5.0, 4.99, 2),
		opp("c", 2.0, 1.99, 2),
	})

	require.NotNil(t, best)
	assert.Equal(t, "b", best.ID)
	// Gas recomputed for the three-token cycle.
	assert.InDelta(t, 0.005, best.GasCostUSD, 1e-12)
	assert.InDelta(t, 5.0-0.005, best.NetProfitUSD, 1e-12)
}

func TestEvaluateThresholdFilters(t *testing.T) {
	e := newTestEngine(nil, nil, 1.0)

	best := e.EvaluateOpportunities([]*scanner.ArbitrageOpportunity{
		opp("a", 0.5, 0.49, 2),
	})

	assert.Nil(t, best)
}

func TestEvaluateRefiltersAfterGasRecompute(t *testing.T) {
	// Net clears the floor on the provisional gas, but the longer path
	// pushes recomputed gas above the remaining margin.
	e := newTestEngine(nil, nil, 0.10)

	best := e.EvaluateOpportunities([]*scanner.ArbitrageOpportunity{
		opp("a", 0.111, 0.101, 5),
	})

	assert.Nil(t, best)
}

func TestEvaluateTieBreaksLexicographically(t *testing.T) {
	e := newTestEngine(nil, nil, 0.0)

	best := e.EvaluateOpportunities([]*scanner.ArbitrageOpportunity{
		opp("zeta", 1.0, 0.99, 2),
		opp("alpha", 1.0, 0.99, 2),
		opp("mid", 1.0, 0.99, 2),
	})

	require.NotNil(t, best)
	assert.Equal(t, "alpha", best.ID)
}

func TestEvaluateEmptyBatch(t *testing.T) {
	e := newTestEngine(nil, nil, 0.10)
	assert.Nil(t, e.EvaluateOpportunities(nil))
}

func TestFindOptimalPathPrefersProfitableCycle(t *testing.T) {
	oneETH := new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18))

	// WETH -> USDC -> WETH returns 1% more WETH than put in.
	quoter := &stubQuoter{rates: map[string]func(*big.Int) *big.Int{
		hop(wethAsset, usdcAsset): func(in *big.Int) *big.Int {
			// 1 WETH -> 1000 USDC
			out := new(big.Int).Mul(in, big.NewInt(1000_000000))
			return out.Quo(out, big.NewInt(1e18))
		},
		hop(usdcAsset, wethAsset): func(in *big.Int) *big.Int {
			// 1000 USDC -> 1.01 WETH
			out := new(big.Int).Mul(in, big.NewInt(1e15))
			out.Quo(out, big.NewInt(990_099))
			return out
		},
	}}
	oracle := &stubOracle{prices: map[string]float64{"WETH": 1000, "USDC": 1, "DAI": 1}}

	e := newTestEngine(quoter, oracle, 0)
	path, err := e.FindOptimalPath(context.Background(), wethAsset, wethAsset, oneETH)
	require.NoError(t, err)

	require.Len(t, path.Tokens, 3)
	assert.Equal(t, "USDC", path.Tokens[1].Symbol)
	assert.Positive(t, path.NetUSD)
	assert.Positive(t, path.GasUSD)
	assert.Equal(t, 1, path.AmountOut.Cmp(path.AmountIn), "cycle must return more than it consumed")
}

func TestFindOptimalPathNoProfitableRoute(t *testing.T) {
	quoter := &stubQuoter{rates: map[string]func(*big.Int) *big.Int{}}
	oracle := &stubOracle{prices: map[string]float64{"WETH": 1000, "USDC": 1}}

	e := newTestEngine(quoter, oracle, 0)
	_, err := e.FindOptimalPath(context.Background(), wethAsset, wethAsset, big.NewInt(1e18))
	require.ErrorIs(t, err, types.ErrNoProfitablePath)
}

func TestCalculateExpectedProfitClampsAtZero(t *testing.T) {
	// A lossy round trip: 1 WETH -> 990 USDC -> 0.98 WETH.
	quoter := &stubQuoter{rates: map[string]func(*big.Int) *big.Int{
		hop(wethAsset, usdcAsset): func(in *big.Int) *big.Int {
			out := new(big.Int).Mul(in, big.NewInt(990_000000))
			return out.Quo(out, big.NewInt(1e18))
		},
		hop(usdcAsset, wethAsset): func(in *big.Int) *big.Int {
			out := new(big.Int).Mul(in, big.NewInt(1e15))
			out.Quo(out, big.NewInt(1_010_101))
			return out
		},
	}}
	oracle := &stubOracle{prices: map[string]float64{"WETH": 1000, "USDC": 1}}

	e := newTestEngine(quoter, oracle, 0)
	profit, err := e.CalculateExpectedProfit(
		context.Background(),
		[]types.TrackedAsset{wethAsset, usdcAsset, wethAsset},
		big.NewInt(1e18),
	)
	require.NoError(t, err)
	assert.Zero(t, profit)
}

func TestCalculateExpectedProfitPositive(t *testing.T) {
	quoter := &stubQuoter{rates: map[string]func(*big.Int) *big.Int{
		hop(wethAsset, usdcAsset): func(in *big.Int) *big.Int {
			// 1 WETH -> 1100 USDC, far above gas.
			out := new(big.Int).Mul(in, big.NewInt(1100_000000))
			return out.Quo(out, big.NewInt(1e18))
		},
	}}
	oracle := &stubOracle{prices: map[string]float64{"WETH": 1000, "USDC": 1}}

	e := newTestEngine(quoter, oracle, 0)
	profit, err := e.CalculateExpectedProfit(
		context.Background(),
		[]types.TrackedAsset{wethAsset, usdcAsset},
		big.NewInt(1e18),
	)
	require.NoError(t, err)
	assert.InDelta(t, 100.0-estimatePathGasUSD([]types.VenueKind{types.VenueUniswapV2}, 2), profit, 1e-6)
}

func TestEstimatePathGasMonotoneInLength(t *testing.T) {
	short := estimatePathGasUSD([]types.VenueKind{types.VenueUniswapV2}, 2)
	long := estimatePathGasUSD([]types.VenueKind{types.VenueUniswapV2, types.VenueUniswapV2}, 3)
	assert.Less(t, short, long)
}

func TestEstimateCycleGas(t *testing.T) {
	assert.InDelta(t, 0.005, estimateCycleGasUSD(3), 1e-12)
	assert.InDelta(t, 0.008, estimateCycleGasUSD(4), 1e-12)
	assert.InDelta(t, 0.012, estimateCycleGasUSD(5), 1e-12)
	assert.LessOrEqual(t, estimateCycleGasUSD(3), estimateCycleGasUSD(4))
	assert.LessOrEqual(t, estimateCycleGasUSD(4), estimateCycleGasUSD(5))
}
