package strategy

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Quoter selects the best single-hop quote across venues. *venue.Registry
// satisfies it.
type Quoter interface {
	BestQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error)
}

// PriceOracle supplies USD valuations for tracked assets.
type PriceOracle interface {
	PriceUSD(ctx context.Context, asset types.TrackedAsset) (float64, error)
}

// Config holds the engine settings.
type Config struct {
	// MinProfitUSD is the net-profit floor an opportunity must clear.
	MinProfitUSD float64

	// MaxHops bounds route length during path search.
	MaxHops int

	// Assets is the universe of intermediate tokens for path search.
	Assets []types.TrackedAsset

	Logger *zap.Logger
}

// Path is a concrete simulated trade route.
type Path struct {
	Tokens    []types.TrackedAsset
	Venues    []types.VenueKind
	AmountIn  *big.Int
	AmountOut *big.Int
	ProfitUSD float64
	GasUSD    float64
	NetUSD    float64
}

// Engine turns detected opportunities into at most one actionable decision
// per evaluation round, and searches multi-hop routes between tokens.
type Engine struct {
	config Config
	quoter Quoter
	oracle PriceOracle
	logger *zap.Logger
}

// New creates a strategy engine.
func New(cfg Config, quoter Quoter, oracle PriceOracle) *Engine {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 3
	}
	return &Engine{config: cfg, quoter: quoter, oracle: oracle, logger: cfg.Logger}
}

// EvaluateOpportunities reduces a batch to at most one winner: filter by
// the profit floor, recompute gas from the full cycle length, re-filter,
// then take the highest net profit. Ties go to the lexicographically
// smallest opportunity ID so evaluation is deterministic.
func (e *Engine) EvaluateOpportunities(opps []*scanner.ArbitrageOpportunity) *scanner.ArbitrageOpportunity {
	start := time.Now()
	var best *scanner.ArbitrageOpportunity

	for _, opp := range opps {
		if opp.NetProfitUSD < e.config.MinProfitUSD {
			continue
		}

		// The cycle returns to the input token, so it is one longer than
		// the token path.
		gasUSD := estimateCycleGasUSD(len(opp.Path) + 1)
		netUSD := opp.GrossProfitUSD - gasUSD
		if netUSD < e.config.MinProfitUSD || netUSD <= 0 {
			continue
		}

		candidate := *opp
		candidate.GasCostUSD = gasUSD
		candidate.NetProfitUSD = netUSD

		switch {
		case best == nil:
			best = &candidate
		case candidate.NetProfitUSD > best.NetProfitUSD:
			best = &candidate
		case candidate.NetProfitUSD == best.NetProfitUSD && candidate.ID < best.ID:
			best = &candidate
		}
	}

	EvaluationsTotal.Inc()
	EvaluationDurationSeconds.Observe(time.Since(start).Seconds())

	if best != nil {
		SelectedOpportunitiesTotal.Inc()
		e.logger.Info("opportunity-selected",
			zap.String("id", best.ID),
			zap.Float64("net-profit-usd", best.NetProfitUSD),
			zap.Float64("gas-usd", best.GasCostUSD))
	}
	return best
}

// FindOptimalPath searches direct, single-intermediate and two-intermediate
// routes from one token to another and returns the most profitable one.
// types.ErrNoProfitablePath is returned when no candidate clears its gas.
func (e *Engine) FindOptimalPath(ctx context.Context, from, to types.TrackedAsset, amountIn *big.Int) (*Path, error) {
	var best *Path

	for _, tokens := range e.candidatePaths(from, to) {
		path, err := e.simulatePath(ctx, tokens, amountIn)
		if err != nil {
			e.logger.Debug("path-simulation-skipped",
				zap.String("route", routeString(tokens)),
				zap.Error(err))
			continue
		}
		if path.NetUSD <= 0 {
			continue
		}
		if best == nil || path.NetUSD > best.NetUSD {
			best = path
		}
	}

	if best == nil {
		return nil, types.ErrNoProfitablePath
	}

	PathsFoundTotal.Inc()
	return best, nil
}

// CalculateExpectedProfit simulates a route and returns its net USD profit,
// clamped at zero for unprofitable routes.
func (e *Engine) CalculateExpectedProfit(ctx context.Context, tokens []types.TrackedAsset, amountIn *big.Int) (float64, error) {
	path, err := e.simulatePath(ctx, tokens, amountIn)
	if err != nil {
		return 0, err
	}
	if path.NetUSD <= 0 {
		return 0, nil
	}
	return path.NetUSD, nil
}

// candidatePaths enumerates the token routes to try, bounded by MaxHops.
func (e *Engine) candidatePaths(from, to types.TrackedAsset) [][]types.TrackedAsset {
	paths := [][]types.TrackedAsset{{from, to}}

	intermediates := make([]types.TrackedAsset, 0, len(e.config.Assets))
	for _, asset := range e.config.Assets {
		if asset.Address == from.Address || asset.Address == to.Address {
			continue
		}
		intermediates = append(intermediates, asset)
	}

	if e.config.MaxHops >= 2 {
		for _, mid := range intermediates {
			paths = append(paths, []types.TrackedAsset{from, mid, to})
		}
	}

	if e.config.MaxHops >= 3 {
		for i := 0; i < len(intermediates); i++ {
			for j := i + 1; j < len(intermediates); j++ {
				paths = append(paths, []types.TrackedAsset{from, intermediates[i], intermediates[j], to})
			}
		}
	}

	return paths
}

// simulatePath walks a route hop by hop taking the best venue quote at
// each step.
func (e *Engine) simulatePath(ctx context.Context, tokens []types.TrackedAsset, amountIn *big.Int) (*Path, error) {
	if len(tokens) < 2 {
		return nil, fmt.Errorf("route needs at least two tokens")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("input amount must be positive")
	}

	amount := new(big.Int).Set(amountIn)
	venues := make([]types.VenueKind, 0, len(tokens)-1)

	for i := 0; i < len(tokens)-1; i++ {
		quote, err := e.quoter.BestQuote(ctx, tokens[i].Address, tokens[i+1].Address, amount)
		if err != nil {
			return nil, fmt.Errorf("hop %s->%s: %w", tokens[i].Symbol, tokens[i+1].Symbol, err)
		}
		amount = quote.OutputAmount
		venues = append(venues, quote.Venue)
	}

	profitUSD, err := e.pathProfitUSD(ctx, tokens, amountIn, amount)
	if err != nil {
		return nil, err
	}

	gasUSD := estimatePathGasUSD(venues, len(tokens))

	return &Path{
		Tokens:    tokens,
		Venues:    venues,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: amount,
		ProfitUSD: profitUSD,
		GasUSD:    gasUSD,
		NetUSD:    profitUSD - gasUSD,
	}, nil
}

// pathProfitUSD values the route. Cycles compare token amounts directly;
// open routes compare USD value of the endpoints.
func (e *Engine) pathProfitUSD(ctx context.Context, tokens []types.TrackedAsset, amountIn, amountOut *big.Int) (float64, error) {
	from, to := tokens[0], tokens[len(tokens)-1]

	if from.Address == to.Address {
		gain := new(big.Int).Sub(amountOut, amountIn)
		price, err := e.oracle.PriceUSD(ctx, from)
		if err != nil {
			return 0, fmt.Errorf("price %s: %w", from.Symbol, err)
		}
		return from.ToFloat(gain) * price, nil
	}

	inPrice, err := e.oracle.PriceUSD(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("price %s: %w", from.Symbol, err)
	}
	outPrice, err := e.oracle.PriceUSD(ctx, to)
	if err != nil {
		return 0, fmt.Errorf("price %s: %w", to.Symbol, err)
	}

	return to.ToFloat(amountOut)*outPrice - from.ToFloat(amountIn)*inPrice, nil
}

func routeString(tokens []types.TrackedAsset) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += ">"
		}
		out += tok.Symbol
	}
	return out
}
