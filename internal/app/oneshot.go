package app

import (
	"context"

	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/ethereum/go-ethereum/common"
)

// ScanOnce refreshes the price cache and runs a single scan pass. Used by
// the one-shot CLI commands.
func (a *App) ScanOnce(ctx context.Context) ([]*scanner.ArbitrageOpportunity, error) {
	a.oracle.RefreshAll(ctx)
	return a.scanner.Scan(ctx)
}

// ConsensusPrices refreshes the price cache and returns the published
// consensus price per tracked asset symbol. Assets without an accepted
// consensus round are omitted.
func (a *App) ConsensusPrices(ctx context.Context) map[string]float64 {
	a.oracle.RefreshAll(ctx)

	out := make(map[string]float64, len(a.cfg.Tokens))
	for _, asset := range a.cfg.Tokens {
		if price, ok := a.oracle.PublishedPrice(asset.Address); ok {
			out[asset.Symbol] = price
		}
	}
	return out
}

// CancelPending replaces a pending transaction with a zero-value
// self-transfer at a bumped gas price.
func (a *App) CancelPending(ctx context.Context, hash common.Hash) (common.Hash, error) {
	return a.executor.CancelTransaction(ctx, hash)
}
