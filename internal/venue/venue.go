package venue

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ContractCaller is the read-only chain access an adapter needs.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Adapter is the uniform quote capability for one venue.
type Adapter interface {
	Name() string
	Kind() types.VenueKind

	// Quote returns the expected output for swapping amountIn of tokenIn.
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error)

	// PoolFor returns the pool address for a pair, or types.ErrNoPool.
	PoolFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error)

	// Reserves returns the token reserves held by a pool.
	Reserves(ctx context.Context, pool common.Address) ([]*big.Int, error)
}

// Registry maps the closed venue-kind set to adapter implementations and
// fans quote requests out across them. Per-venue failures are isolated:
// a venue that cannot quote a pair is skipped, not fatal.
type Registry struct {
	logger *zap.Logger

	mu       sync.RWMutex
	adapters map[types.VenueKind]Adapter
}

// NewRegistry creates an empty venue registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger,
		adapters: make(map[types.VenueKind]Adapter),
	}
}

// Register adds or replaces the adapter for a venue kind.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Kind()] = adapter
}

// Adapter returns the adapter for a kind, if registered.
func (r *Registry) Adapter(kind types.VenueKind) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds returns the registered venue kinds in enumeration order.
func (r *Registry) Kinds() []types.VenueKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]types.VenueKind, 0, len(r.adapters))
	for _, kind := range types.AllVenueKinds() {
		if _, ok := r.adapters[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Quotes requests a quote from every registered venue concurrently and
// returns the successful ones sorted by venue kind for determinism.
func (r *Registry) Quotes(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) []*types.Quote {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		outMu  sync.Mutex
		quotes []*types.Quote
	)

	for _, adapter := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()

			start := time.Now()
			quote, err := a.Quote(ctx, tokenIn, tokenOut, amountIn)
			QuoteDurationSeconds.WithLabelValues(a.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				QuoteFailuresTotal.WithLabelValues(a.Name()).Inc()
				r.logger.Debug("venue-quote-failed",
					zap.String("venue", a.Name()),
					zap.String("token-in", tokenIn.Hex()),
					zap.String("token-out", tokenOut.Hex()),
					zap.Error(err))
				return
			}

			QuotesTotal.WithLabelValues(a.Name()).Inc()
			outMu.Lock()
			quotes = append(quotes, quote)
			outMu.Unlock()
		}(adapter)
	}

	wg.Wait()

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Venue < quotes[j].Venue })
	return quotes
}

// BestQuote returns the quote with the highest output amount across all
// venues, or types.ErrNoQuote when no venue can quote the pair.
func (r *Registry) BestQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*types.Quote, error) {
	quotes := r.Quotes(ctx, tokenIn, tokenOut, amountIn)
	if len(quotes) == 0 {
		return nil, types.ErrNoQuote
	}

	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.OutputAmount.Cmp(best.OutputAmount) > 0 {
			best = q
		}
	}
	return best, nil
}
