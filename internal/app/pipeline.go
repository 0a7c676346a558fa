package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apexmev/arbiter/internal/execution"
	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// priceRefresher refreshes the consensus price cache.
type priceRefresher interface {
	RefreshAll(ctx context.Context)
}

// opportunityScanner probes tracked pairs for cross-venue spreads.
type opportunityScanner interface {
	Scan(ctx context.Context) ([]*scanner.ArbitrageOpportunity, error)
}

// opportunitySelector picks at most one opportunity from a batch.
type opportunitySelector interface {
	EvaluateOpportunities(opps []*scanner.ArbitrageOpportunity) *scanner.ArbitrageOpportunity
}

// txBuilder turns a selected opportunity into a submittable transaction.
type txBuilder interface {
	Build(ctx context.Context, opp *scanner.ArbitrageOpportunity) (*execution.ArbitrageTransaction, error)
}

// txExecutor submits transactions and tracks their fate.
type txExecutor interface {
	Execute(ctx context.Context, tx *execution.ArbitrageTransaction) (common.Hash, error)
	WaitForTransaction(ctx context.Context, hash common.Hash, timeout time.Duration) (execution.TxStatus, error)
}

// opportunityStore records every detected opportunity.
type opportunityStore interface {
	RecordOpportunity(ctx context.Context, opp *scanner.ArbitrageOpportunity) error
}

// PipelineConfig holds the per-block pipeline settings.
type PipelineConfig struct {
	// TxTimeout bounds how long a submitted transaction is awaited.
	TxTimeout time.Duration

	Logger *zap.Logger
}

// Pipeline runs the decision sequence for each new block: refresh prices,
// scan for spreads, record what was found, select the best candidate,
// build and submit it.
type Pipeline struct {
	config   PipelineConfig
	prices   priceRefresher
	scanner  opportunityScanner
	selector opportunitySelector
	builder  txBuilder
	executor txExecutor
	store    opportunityStore
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewPipeline creates the per-block pipeline.
func NewPipeline(
	cfg PipelineConfig,
	prices priceRefresher,
	oppScanner opportunityScanner,
	selector opportunitySelector,
	builder txBuilder,
	executor txExecutor,
	store opportunityStore,
) *Pipeline {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 60 * time.Second
	}
	return &Pipeline{
		config:   cfg,
		prices:   prices,
		scanner:  oppScanner,
		selector: selector,
		builder:  builder,
		executor: executor,
		store:    store,
		logger:   cfg.Logger,
	}
}

// HandleBlock processes one block through the full decision sequence.
// Recording failures and execution failures are logged, not fatal: the next
// block gets a fresh attempt either way.
func (p *Pipeline) HandleBlock(ctx context.Context, block *ethtypes.Block) error {
	height := block.NumberU64()
	start := time.Now()

	p.prices.RefreshAll(ctx)

	opps, err := p.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	for _, opp := range opps {
		if recErr := p.store.RecordOpportunity(ctx, opp); recErr != nil {
			p.logger.Warn("opportunity-record-failed",
				zap.String("opportunity", opp.ID),
				zap.Error(recErr))
		}
	}

	BlocksHandledTotal.Inc()
	BlockHandleDurationSeconds.Observe(time.Since(start).Seconds())

	selected := p.selector.EvaluateOpportunities(opps)
	if selected == nil {
		p.logger.Debug("no-opportunity-selected",
			zap.Uint64("block", height),
			zap.Int("detected", len(opps)))
		return nil
	}

	p.logger.Info("opportunity-selected",
		zap.Uint64("block", height),
		zap.String("opportunity", selected.ID),
		zap.Float64("net-profit-usd", selected.NetProfitUSD))

	p.execute(ctx, selected)
	return nil
}

// execute builds and submits the selected opportunity. Detection-only
// deployments (no signer, no deployed contract) stop after the build.
func (p *Pipeline) execute(ctx context.Context, opp *scanner.ArbitrageOpportunity) {
	tx, err := p.builder.Build(ctx, opp)
	if err != nil {
		p.logger.Warn("transaction-build-failed",
			zap.String("opportunity", opp.ID),
			zap.Error(err))
		return
	}
	if tx.Degraded {
		return
	}

	hash, err := p.executor.Execute(ctx, tx)
	if err != nil {
		if errors.Is(err, types.ErrNoSigner) {
			p.logger.Info("detection-only-skipping-submission",
				zap.String("opportunity", opp.ID))
			return
		}
		p.logger.Error("transaction-submission-failed",
			zap.String("opportunity", opp.ID),
			zap.Error(err))
		return
	}

	ExecutionsTotal.Inc()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		status, waitErr := p.executor.WaitForTransaction(ctx, hash, p.config.TxTimeout)
		if waitErr != nil {
			p.logger.Warn("transaction-wait-failed",
				zap.String("tx", hash.Hex()),
				zap.Error(waitErr))
			return
		}
		p.logger.Info("transaction-finalized",
			zap.String("tx", hash.Hex()),
			zap.String("status", string(status)))
	}()
}

// Drain blocks until all in-flight transaction waits finish.
func (p *Pipeline) Drain() {
	p.wg.Wait()
}
