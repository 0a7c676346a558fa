package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apexmev/arbiter/pkg/cache"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	pairABIJSON = `[
		{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"},
		{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"type":"function"}
	]`
	factoryABIJSON = `[
		{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"type":"function"}
	]`

	poolCacheTTL = 10 * time.Minute
)

// ConstantProductAdapter quotes swaps on Uniswap-V2-compatible venues.
// Uniswap V2 and Sushiswap share the same factory/pair contracts and the
// same x*y=k pricing with a 30bps fee, so one adapter serves both kinds.
type ConstantProductAdapter struct {
	kind    types.VenueKind
	factory common.Address
	router  common.Address
	caller  ContractCaller
	pools   cache.Cache
	logger  *zap.Logger

	pairABI    abi.ABI
	factoryABI abi.ABI
}

// NewConstantProductAdapter creates an adapter for a V2-style venue.
func NewConstantProductAdapter(
	kind types.VenueKind,
	factory, router common.Address,
	caller ContractCaller,
	pools cache.Cache,
	logger *zap.Logger,
) (*ConstantProductAdapter, error) {
	pairABI, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse pair ABI: %w", err)
	}

	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse factory ABI: %w", err)
	}

	return &ConstantProductAdapter{
		kind:       kind,
		factory:    factory,
		router:     router,
		caller:     caller,
		pools:      pools,
		logger:     logger,
		pairABI:    pairABI,
		factoryABI: factoryABI,
	}, nil
}

// Name returns the venue name.
func (a *ConstantProductAdapter) Name() string { return a.kind.String() }

// Kind returns the venue kind.
func (a *ConstantProductAdapter) Kind() types.VenueKind { return a.kind }

// PoolFor resolves the pair address for two tokens, consulting the pool
// cache first. A zero address from the factory means no pool exists.
func (a *ConstantProductAdapter) PoolFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	key := a.poolCacheKey(tokenA, tokenB)
	if a.pools != nil {
		if cached, ok := a.pools.Get(key); ok {
			return cached.(common.Address), nil
		}
	}

	data, err := a.factoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPair: %w", err)
	}

	result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &a.factory, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getPair: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("getPair returned %d bytes", len(result))
	}

	pool := common.BytesToAddress(result[12:32])
	if pool == (common.Address{}) {
		return common.Address{}, types.ErrNoPool
	}

	if a.pools != nil {
		a.pools.Set(key, pool, poolCacheTTL)
	}
	return pool, nil
}

// Reserves returns the pair's two reserves ordered as (reserve0, reserve1).
func (a *ConstantProductAdapter) Reserves(ctx context.Context, pool common.Address) ([]*big.Int, error) {
	data, err := a.pairABI.Pack("getReserves")
	if err != nil {
		return nil, fmt.Errorf("pack getReserves: %w", err)
	}

	result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call getReserves: %w", err)
	}
	if len(result) < 64 {
		return nil, fmt.Errorf("getReserves returned %d bytes", len(result))
	}

	reserve0 := new(big.Int).SetBytes(result[0:32])
	reserve1 := new(big.Int).SetBytes(result[32:64])
	return []*big.Int{reserve0, reserve1}, nil
}

// Quote prices a swap off the pool reserves using the constant-product
// formula with the 0.3% venue fee.
func (a *ConstantProductAdapter) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("input amount must be positive")
	}

	pool, err := a.PoolFor(ctx, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	reserves, err := a.Reserves(ctx, pool)
	if err != nil {
		return nil, err
	}

	token0, err := a.token0(ctx, pool)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut := reserves[0], reserves[1]
	if token0 != tokenIn {
		reserveIn, reserveOut = reserves[1], reserves[0]
	}

	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, types.ErrNoQuote
	}

	amountOut := amountOutConstantProduct(amountIn, reserveIn, reserveOut)

	return &types.Quote{
		InputToken:   tokenIn,
		OutputToken:  tokenOut,
		InputAmount:  new(big.Int).Set(amountIn),
		OutputAmount: amountOut,
		Path:         []common.Address{tokenIn, tokenOut},
		Pools:        []common.Address{pool},
		Venue:        a.kind,
	}, nil
}

func (a *ConstantProductAdapter) token0(ctx context.Context, pool common.Address) (common.Address, error) {
	data, err := a.pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, fmt.Errorf("pack token0: %w", err)
	}

	result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call token0: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("token0 returned %d bytes", len(result))
	}

	return common.BytesToAddress(result[12:32]), nil
}

func (a *ConstantProductAdapter) poolCacheKey(tokenA, tokenB common.Address) string {
	// Order-insensitive: the factory returns the same pair either way.
	x, y := tokenA.Hex(), tokenB.Hex()
	if y < x {
		x, y = y, x
	}
	return a.kind.String() + ":" + x + ":" + y
}

// amountOutConstantProduct computes x*y=k output after the 30bps fee:
// out = in*997*reserveOut / (reserveIn*1000 + in*997).
func amountOutConstantProduct(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, big.NewInt(1000)),
		inWithFee,
	)
	return new(big.Int).Quo(numerator, denominator)
}
