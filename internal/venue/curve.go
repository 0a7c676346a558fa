package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/apexmev/arbiter/pkg/cache"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	curveRegistryABIJSON = `[
		{"stateMutability":"view","type":"function","name":"find_pool_for_coins","inputs":[{"name":"_from","type":"address"},{"name":"_to","type":"address"}],"outputs":[{"name":"","type":"address"}]}
	]`
	curvePoolABIJSON = `[
		{"stateMutability":"view","type":"function","name":"get_dy","inputs":[{"name":"i","type":"int128"},{"name":"j","type":"int128"},{"name":"dx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
		{"stateMutability":"view","type":"function","name":"coins","inputs":[{"name":"arg0","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
		{"stateMutability":"view","type":"function","name":"balances","inputs":[{"name":"arg0","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
	]`

	// Curve pools hold at most 8 coins.
	curveMaxCoins = 8
)

// CurveAdapter quotes swaps on Curve stableswap pools via the on-chain
// registry. Pricing is delegated to the pool's own get_dy so the invariant
// math stays on chain.
type CurveAdapter struct {
	registry common.Address
	caller   ContractCaller
	pools    cache.Cache
	logger   *zap.Logger

	registryABI abi.ABI
	poolABI     abi.ABI
}

// NewCurveAdapter creates a Curve adapter backed by the given registry.
func NewCurveAdapter(registry common.Address, caller ContractCaller, pools cache.Cache, logger *zap.Logger) (*CurveAdapter, error) {
	registryABI, err := abi.JSON(strings.NewReader(curveRegistryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}

	poolABI, err := abi.JSON(strings.NewReader(curvePoolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse pool ABI: %w", err)
	}

	return &CurveAdapter{
		registry:    registry,
		caller:      caller,
		pools:       pools,
		logger:      logger,
		registryABI: registryABI,
		poolABI:     poolABI,
	}, nil
}

// Name returns the venue name.
func (a *CurveAdapter) Name() string { return types.VenueCurve.String() }

// Kind returns the venue kind.
func (a *CurveAdapter) Kind() types.VenueKind { return types.VenueCurve }

// PoolFor asks the registry for a pool swapping tokenA to tokenB.
func (a *CurveAdapter) PoolFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	key := a.poolCacheKey(tokenA, tokenB)
	if a.pools != nil {
		if cached, ok := a.pools.Get(key); ok {
			return cached.(common.Address), nil
		}
	}

	data, err := a.registryABI.Pack("find_pool_for_coins", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack find_pool_for_coins: %w", err)
	}

	result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &a.registry, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call find_pool_for_coins: %w", err)
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("find_pool_for_coins returned %d bytes", len(result))
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

// Reserves returns the pool's coin balances, one per registered coin.
func (a *CurveAdapter) Reserves(ctx context.Context, pool common.Address) ([]*big.Int, error) {
	var balances []*big.Int
	for i := 0; i < curveMaxCoins; i++ {
		data, err := a.poolABI.Pack("balances", big.NewInt(int64(i)))
		if err != nil {
			return nil, fmt.Errorf("pack balances: %w", err)
		}

		result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
		if err != nil {
			// Out-of-range index reverts; the coins before it are the full set.
			break
		}
		if len(result) < 32 {
			break
		}
		balances = append(balances, new(big.Int).SetBytes(result[0:32]))
	}

	if len(balances) == 0 {
		return nil, fmt.Errorf("pool %s has no readable balances", pool.Hex())
	}
	return balances, nil
}

// Quote prices a swap through the pool's get_dy.
func (a *CurveAdapter) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("input amount must be positive")
	}

	pool, err := a.PoolFor(ctx, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	i, j, err := a.coinIndices(ctx, pool, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	data, err := a.poolABI.Pack("get_dy", big.NewInt(i), big.NewInt(j), amountIn)
	if err != nil {
		return nil, fmt.Errorf("pack get_dy: %w", err)
	}

	result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call get_dy: %w", err)
	}
	if len(result) < 32 {
		return nil, fmt.Errorf("get_dy returned %d bytes", len(result))
	}

	amountOut := new(big.Int).SetBytes(result[0:32])
	if amountOut.Sign() == 0 {
		return nil, types.ErrNoQuote
	}

	return &types.Quote{
		InputToken:   tokenIn,
		OutputToken:  tokenOut,
		InputAmount:  new(big.Int).Set(amountIn),
		OutputAmount: amountOut,
		Path:         []common.Address{tokenIn, tokenOut},
		Pools:        []common.Address{pool},
		Venue:        types.VenueCurve,
	}, nil
}

// coinIndices resolves the int128 indices get_dy expects for the two tokens.
func (a *CurveAdapter) coinIndices(ctx context.Context, pool common.Address, tokenIn, tokenOut common.Address) (int64, int64, error) {
	in, out := int64(-1), int64(-1)

	for i := 0; i < curveMaxCoins && (in < 0 || out < 0); i++ {
		data, err := a.poolABI.Pack("coins", big.NewInt(int64(i)))
		if err != nil {
			return 0, 0, fmt.Errorf("pack coins: %w", err)
		}

		result, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
		if err != nil {
			break
		}
		if len(result) < 32 {
			break
		}

		coin := common.BytesToAddress(result[12:32])
		switch coin {
		case tokenIn:
			in = int64(i)
		case tokenOut:
			out = int64(i)
		}
	}

	if in < 0 || out < 0 {
		return 0, 0, fmt.Errorf("pool %s does not hold both coins: %w", pool.Hex(), types.ErrNoQuote)
	}
	return in, out, nil
}

func (a *CurveAdapter) poolCacheKey(tokenA, tokenB common.Address) string {
	x, y := tokenA.Hex(), tokenB.Hex()
	if y < x {
		x, y = y, x
	}
	return a.Name() + ":" + x + ":" + y
}
