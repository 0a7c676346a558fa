package price

import (
	"context"
	"sync"
	"time"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source produces a raw USD price observation for a tracked asset.
type Source interface {
	Name() string
	Price(ctx context.Context, asset types.TrackedAsset) (float64, error)
}

// OracleConfig controls the consensus and freshness policy.
type OracleConfig struct {
	// MinSources is the minimum number of accepted samples required to
	// publish a new price. Rounds below it keep the previous value.
	MinSources int

	// MaxDeviationPct rejects samples further than this percentage from
	// the round median.
	MaxDeviationPct float64

	// Freshness is how long a published price stays servable before a
	// read triggers a synchronous refresh.
	Freshness time.Duration
}

type entry struct {
	priceUSD  float64
	updatedAt time.Time
	samples   int
}

// Oracle maintains consensus USD prices for a set of tracked assets,
// aggregated across independent sources. Reads are served from the
// published map; a stale read refreshes synchronously before answering.
type Oracle struct {
	logger *zap.Logger
	config OracleConfig
	weth   types.TrackedAsset
	assets []types.TrackedAsset

	mu      sync.RWMutex
	sources []Source
	prices  map[common.Address]entry

	now func() time.Time
}

// NewOracle creates an oracle for the given assets. The WETH asset is the
// numeraire for ETH-denominated reads.
func NewOracle(cfg OracleConfig, weth types.TrackedAsset, assets []types.TrackedAsset, logger *zap.Logger) *Oracle {
	return &Oracle{
		logger: logger,
		config: cfg,
		weth:   weth,
		assets: assets,
		prices: make(map[common.Address]entry),
		now:    time.Now,
	}
}

// AddSource registers a price source. Adding a source with a name that is
// already registered replaces it.
func (o *Oracle) AddSource(src Source) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, existing := range o.sources {
		if existing.Name() == src.Name() {
			o.sources[i] = src
			return
		}
	}
	o.sources = append(o.sources, src)
}

// RemoveSource unregisters a source by name.
func (o *Oracle) RemoveSource(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, existing := range o.sources {
		if existing.Name() == name {
			o.sources = append(o.sources[:i], o.sources[i+1:]...)
			return
		}
	}
}

// Sources returns the registered source names.
func (o *Oracle) Sources() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, len(o.sources))
	for i, src := range o.sources {
		names[i] = src.Name()
	}
	return names
}

// PriceUSD returns the consensus USD price for an asset. A missing or
// stale entry triggers a synchronous refresh; if the refresh still cannot
// publish, types.ErrPriceUnavailable is returned.
func (o *Oracle) PriceUSD(ctx context.Context, asset types.TrackedAsset) (float64, error) {
	if e, ok := o.fresh(asset.Address); ok {
		return e.priceUSD, nil
	}

	o.refreshAsset(ctx, asset)

	o.mu.RLock()
	e, ok := o.prices[asset.Address]
	o.mu.RUnlock()
	if !ok {
		return 0, types.ErrPriceUnavailable
	}
	return e.priceUSD, nil
}

// PriceETH returns the asset's price denominated in ETH, derived from the
// USD prices of the asset and WETH.
func (o *Oracle) PriceETH(ctx context.Context, asset types.TrackedAsset) (float64, error) {
	assetUSD, err := o.PriceUSD(ctx, asset)
	if err != nil {
		return 0, err
	}

	wethUSD, err := o.PriceUSD(ctx, o.weth)
	if err != nil {
		return 0, err
	}
	if wethUSD == 0 {
		return 0, types.ErrPriceUnavailable
	}
	return assetUSD / wethUSD, nil
}

// PriceOf returns how many units of quote one unit of base is worth. A
// non-positive quote price is an error, not an Inf.
func (o *Oracle) PriceOf(ctx context.Context, base, quote types.TrackedAsset) (float64, error) {
	baseUSD, err := o.PriceUSD(ctx, base)
	if err != nil {
		return 0, err
	}

	quoteUSD, err := o.PriceUSD(ctx, quote)
	if err != nil {
		return 0, err
	}
	if quoteUSD <= 0 {
		return 0, types.ErrPriceUnavailable
	}
	return baseUSD / quoteUSD, nil
}

// PublishedPrice returns the last published price for a raw address without
// triggering a refresh. Useful for read paths that must not block.
func (o *Oracle) PublishedPrice(address common.Address) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	e, ok := o.prices[address]
	if !ok {
		return 0, false
	}
	return e.priceUSD, true
}

// RefreshAll refreshes every tracked asset concurrently. Per-asset failures
// are absorbed; the published map always reflects the last good value.
func (o *Oracle) RefreshAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, asset := range o.assets {
		asset := asset
		g.Go(func() error {
			o.refreshAsset(gctx, asset)
			return nil
		})
	}
	_ = g.Wait()
}

// refreshAsset runs one consensus round for an asset. The WETH numeraire is
// refreshed first when stale so venue-derived sources can route through it.
func (o *Oracle) refreshAsset(ctx context.Context, asset types.TrackedAsset) {
	if asset.Address != o.weth.Address {
		if _, ok := o.fresh(o.weth.Address); !ok {
			o.refreshAsset(ctx, o.weth)
		}
	}

	o.mu.RLock()
	sources := make([]Source, len(o.sources))
	copy(sources, o.sources)
	o.mu.RUnlock()

	var (
		samplesMu sync.Mutex
		samples   []types.PriceSample
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			p, err := src.Price(gctx, asset)
			if err != nil {
				SourceFailuresTotal.WithLabelValues(src.Name()).Inc()
				o.logger.Debug("price-source-failed",
					zap.String("source", src.Name()),
					zap.String("symbol", asset.Symbol),
					zap.Error(err))
				return nil
			}
			samplesMu.Lock()
			samples = append(samples, types.PriceSample{Source: src.Name(), Price: p})
			samplesMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(samples) == 0 {
		InsufficientSourcesTotal.WithLabelValues(asset.Symbol).Inc()
		o.logger.Warn("price-round-empty", zap.String("symbol", asset.Symbol))
		return
	}

	consensus, accepted := Consensus(samples, o.config.MaxDeviationPct)
	if accepted < o.config.MinSources {
		InsufficientSourcesTotal.WithLabelValues(asset.Symbol).Inc()
		o.logger.Warn("price-round-rejected",
			zap.String("symbol", asset.Symbol),
			zap.Int("accepted", accepted),
			zap.Int("min-sources", o.config.MinSources),
			zap.Int("raw-samples", len(samples)))
		return
	}

	o.mu.Lock()
	o.prices[asset.Address] = entry{
		priceUSD:  consensus,
		updatedAt: o.now(),
		samples:   accepted,
	}
	o.mu.Unlock()

	PriceUSDGauge.WithLabelValues(asset.Symbol).Set(consensus)
	RefreshesTotal.WithLabelValues(asset.Symbol).Inc()

	o.logger.Debug("price-published",
		zap.String("symbol", asset.Symbol),
		zap.Float64("price-usd", consensus),
		zap.Int("accepted", accepted))
}

func (o *Oracle) fresh(address common.Address) (entry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	e, ok := o.prices[address]
	if !ok {
		return entry{}, false
	}
	if o.config.Freshness > 0 && o.now().Sub(e.updatedAt) > o.config.Freshness {
		return entry{}, false
	}
	return e, true
}
