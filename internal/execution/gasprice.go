package execution

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/apexmev/arbiter/pkg/config"
	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// gasRefreshWindow bounds how often live gas data is re-fetched.
const gasRefreshWindow = 15 * time.Second

var gweiWei = big.NewInt(1_000_000_000)

// GasBackend is the chain surface the optimizer reads gas data from.
// *ethclient.Client satisfies it.
type GasBackend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
}

// GasConfig selects and parameterizes the pricing strategy.
type GasConfig struct {
	Strategy          config.GasStrategy
	MaxGasPriceGwei   float64
	BaseFeeMultiplier float64
	PriorityFeeGwei   float64
}

// GasOptimizer produces gas prices under one of three strategies: a fixed
// ceiling price, EIP-1559 fee estimation from the live base fee and recent
// priority fees, or the node's dynamic suggestion. Live data is cached and
// refreshed at most once per window.
type GasOptimizer struct {
	config  GasConfig
	backend GasBackend
	logger  *zap.Logger

	mu          sync.RWMutex
	gasPrice    *big.Int
	gasTipCap   *big.Int
	gasFeeCap   *big.Int
	lastRefresh time.Time

	now func() time.Time
}

// NewGasOptimizer creates a gas optimizer.
func NewGasOptimizer(cfg GasConfig, backend GasBackend, logger *zap.Logger) *GasOptimizer {
	return &GasOptimizer{
		config:  cfg,
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// GasPrice returns the effective price for a legacy transaction: the fee
// cap under EIP-1559, the capped suggestion under dynamic, or the
// configured ceiling under fixed.
func (g *GasOptimizer) GasPrice(ctx context.Context) (*big.Int, error) {
	if g.config.Strategy == config.GasStrategyFixed {
		return gweiToWei(g.config.MaxGasPriceGwei), nil
	}

	if err := g.refresh(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.config.Strategy == config.GasStrategyEIP1559 {
		return new(big.Int).Set(g.gasFeeCap), nil
	}
	return new(big.Int).Set(g.gasPrice), nil
}

// FeeCaps returns the EIP-1559 tip and fee caps. Under fixed and dynamic
// strategies the tip is the configured priority fee and the cap is the
// effective gas price.
func (g *GasOptimizer) FeeCaps(ctx context.Context) (tip, feeCap *big.Int, err error) {
	price, err := g.GasPrice(ctx)
	if err != nil {
		return nil, nil, err
	}

	if g.config.Strategy == config.GasStrategyEIP1559 {
		g.mu.RLock()
		tip = new(big.Int).Set(g.gasTipCap)
		g.mu.RUnlock()
	} else {
		tip = gweiToWei(g.config.PriorityFeeGwei)
	}

	if tip.Cmp(price) > 0 {
		tip = new(big.Int).Set(price)
	}
	return tip, price, nil
}

// refresh re-reads live gas data, at most once per window.
func (g *GasOptimizer) refresh(ctx context.Context) error {
	g.mu.RLock()
	fresh := g.now().Sub(g.lastRefresh) < gasRefreshWindow && g.gasPrice != nil
	g.mu.RUnlock()
	if fresh {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.now().Sub(g.lastRefresh) < gasRefreshWindow && g.gasPrice != nil {
		return nil
	}

	ceiling := gweiToWei(g.config.MaxGasPriceGwei)

	suggested, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}
	if suggested.Cmp(ceiling) > 0 {
		suggested = ceiling
	}
	g.gasPrice = suggested

	if g.config.Strategy == config.GasStrategyEIP1559 {
		if err := g.refreshEIP1559(ctx, ceiling); err != nil {
			return err
		}
	}

	g.lastRefresh = g.now()
	GasRefreshesTotal.Inc()

	g.logger.Debug("gas-refreshed",
		zap.String("strategy", string(g.config.Strategy)),
		zap.String("gas-price", g.gasPrice.String()))
	return nil
}

func (g *GasOptimizer) refreshEIP1559(ctx context.Context, ceiling *big.Int) error {
	header, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("latest header: %w", err)
	}
	if header.BaseFee == nil {
		return fmt.Errorf("chain has no base fee")
	}

	tip, err := g.medianPriorityFee(ctx)
	if err != nil {
		return err
	}

	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(header.BaseFee),
		big.NewFloat(g.config.BaseFeeMultiplier),
	)
	baseFee, _ := multiplied.Int(nil)

	feeCap := new(big.Int).Add(baseFee, tip)
	if feeCap.Cmp(ceiling) > 0 {
		feeCap = ceiling
	}

	g.gasTipCap = tip
	g.gasFeeCap = feeCap
	return nil
}

// medianPriorityFee takes the median 50th-percentile reward over the last
// 10 blocks, falling back to the configured priority fee on thin history.
func (g *GasOptimizer) medianPriorityFee(ctx context.Context) (*big.Int, error) {
	history, err := g.backend.FeeHistory(ctx, 10, nil, []float64{50})
	if err != nil {
		return nil, fmt.Errorf("fee history: %w", err)
	}

	var rewards []*big.Int
	for _, blockRewards := range history.Reward {
		if len(blockRewards) > 0 && blockRewards[0] != nil {
			rewards = append(rewards, blockRewards[0])
		}
	}
	if len(rewards) == 0 {
		return gweiToWei(g.config.PriorityFeeGwei), nil
	}

	sort.Slice(rewards, func(i, j int) bool { return rewards[i].Cmp(rewards[j]) < 0 })
	return new(big.Int).Set(rewards[len(rewards)/2]), nil
}

func gweiToWei(gwei float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(gwei), new(big.Float).SetInt(gweiWei))
	wei, _ := f.Int(nil)
	return wei
}
