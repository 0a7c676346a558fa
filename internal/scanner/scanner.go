package scanner

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// provisionalGasUSD is the placeholder gas estimate attached to fresh
// opportunities before the strategy engine recomputes it path-aware.
const provisionalGasUSD = 0.01

// Quoter fans a quote request across venues. *venue.Registry satisfies it.
type Quoter interface {
	Quotes(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) []*types.Quote
}

// PriceOracle supplies USD valuations for tracked assets.
type PriceOracle interface {
	PriceUSD(ctx context.Context, asset types.TrackedAsset) (float64, error)
}

// Config holds the scanner settings.
type Config struct {
	// Assets is the tracked universe; every ordered pair is scanned.
	Assets []types.TrackedAsset

	// ScanInterval is the cadence of continuous scanning.
	ScanInterval time.Duration

	// QuietInterval replaces ScanInterval when QuietMode is on.
	QuietInterval time.Duration
	QuietMode     bool

	// BufferSize bounds the opportunity channel.
	BufferSize int

	Logger *zap.Logger
}

// Scanner detects cross-venue price discrepancies across every ordered
// pair of tracked assets.
type Scanner struct {
	config Config
	quoter Quoter
	oracle PriceOracle
	logger *zap.Logger

	opportunities chan *ArbitrageOpportunity

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scanner.
func New(cfg Config, quoter Quoter, oracle PriceOracle) *Scanner {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	return &Scanner{
		config:        cfg,
		quoter:        quoter,
		oracle:        oracle,
		logger:        cfg.Logger,
		opportunities: make(chan *ArbitrageOpportunity, cfg.BufferSize),
	}
}

// Opportunities returns the channel fresh opportunities are published on.
func (s *Scanner) Opportunities() <-chan *ArbitrageOpportunity {
	return s.opportunities
}

// Scan runs one pass over every ordered pair and returns the profitable
// opportunities found, sorted by pair enumeration order.
func (s *Scanner) Scan(ctx context.Context) ([]*ArbitrageOpportunity, error) {
	runID := uuid.New().String()
	start := time.Now()

	var found []*ArbitrageOpportunity
	for _, tokenIn := range s.config.Assets {
		for _, tokenOut := range s.config.Assets {
			if tokenIn.Address == tokenOut.Address {
				continue
			}
			if err := ctx.Err(); err != nil {
				return found, err
			}

			opp, err := s.scanPair(ctx, tokenIn, tokenOut)
			if err != nil {
				s.logger.Debug("pair-scan-skipped",
					zap.String("run-id", runID),
					zap.String("pair", tokenIn.Symbol+"-"+tokenOut.Symbol),
					zap.Error(err))
				continue
			}
			if opp != nil {
				found = append(found, opp)
				OpportunitiesFound.WithLabelValues(tokenIn.Symbol + "-" + tokenOut.Symbol).Inc()
			}
		}
	}

	ScansTotal.Inc()
	ScanDurationSeconds.Observe(time.Since(start).Seconds())

	s.logger.Debug("scan-complete",
		zap.String("run-id", runID),
		zap.Int("opportunities", len(found)),
		zap.Duration("elapsed", time.Since(start)))
	return found, nil
}

// scanPair probes one ordered pair with a one-unit input. A pair needs
// quotes from at least two distinct venues to carry a discrepancy.
func (s *Scanner) scanPair(ctx context.Context, tokenIn, tokenOut types.TrackedAsset) (*ArbitrageOpportunity, error) {
	amountIn := tokenIn.OneUnit()
	quotes := s.quoter.Quotes(ctx, tokenIn.Address, tokenOut.Address, amountIn)
	if len(quotes) < 2 {
		return nil, nil
	}

	best, worst := quotes[0], quotes[0]
	for _, q := range quotes[1:] {
		if q.OutputAmount.Cmp(best.OutputAmount) > 0 {
			best = q
		}
		if q.OutputAmount.Cmp(worst.OutputAmount) < 0 {
			worst = q
		}
	}
	if best.Venue == worst.Venue {
		return nil, nil
	}

	spread := new(big.Int).Sub(best.OutputAmount, worst.OutputAmount)
	if spread.Sign() <= 0 {
		return nil, nil
	}

	outPriceUSD, err := s.oracle.PriceUSD(ctx, tokenOut)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", tokenOut.Symbol, err)
	}

	grossUSD := tokenOut.ToFloat(spread) * outPriceUSD
	netUSD := grossUSD - provisionalGasUSD
	if netUSD <= 0 {
		return nil, nil
	}

	return &ArbitrageOpportunity{
		ID:             OpportunityID(tokenIn, tokenOut, best.Venue, worst.Venue),
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		BuyVenue:       best.Venue,
		SellVenue:      worst.Venue,
		BuyPool:        firstPool(best),
		SellPool:       firstPool(worst),
		AmountIn:       amountIn,
		BuyAmountOut:   best.OutputAmount,
		SellAmountOut:  worst.OutputAmount,
		GrossProfitUSD: grossUSD,
		GasCostUSD:     provisionalGasUSD,
		NetProfitUSD:   netUSD,
		Path:           []types.TrackedAsset{tokenIn, tokenOut},
		DetectedAt:     time.Now(),
	}, nil
}

// StartContinuous begins scanning on the configured cadence. Starting an
// already running scanner is a no-op.
func (s *Scanner) StartContinuous(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	interval := s.config.ScanInterval
	if s.config.QuietMode && s.config.QuietInterval > 0 {
		interval = s.config.QuietInterval
	}

	go s.loop(runCtx, interval, s.done)

	s.logger.Info("scanner-started", zap.Duration("interval", interval))
}

// StopContinuous halts continuous scanning. Stopping a stopped scanner is
// a no-op.
func (s *Scanner) StopContinuous() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("scanner-stopped")
}

// Running reports whether continuous scanning is active.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scanner) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			found, err := s.Scan(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				ScanFailuresTotal.Inc()
				s.logger.Warn("scan-failed", zap.Error(err))
				continue
			}
			for _, opp := range found {
				s.publish(opp)
			}
		}
	}
}

func firstPool(q *types.Quote) common.Address {
	if len(q.Pools) == 0 {
		return common.Address{}
	}
	return q.Pools[0]
}

// publish pushes an opportunity without blocking the scan loop; a full
// buffer drops the opportunity rather than stalling detection.
func (s *Scanner) publish(opp *ArbitrageOpportunity) {
	select {
	case s.opportunities <- opp:
	default:
		s.logger.Warn("opportunity-dropped", zap.String("id", opp.ID))
	}
}
