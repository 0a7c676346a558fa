package storage

import (
	"context"

	"github.com/apexmev/arbiter/internal/scanner"
	"go.uber.org/zap"
)

// Console logs opportunities instead of persisting them. The default mode
// for local runs.
type Console struct {
	logger *zap.Logger
}

// NewConsole creates a console store.
func NewConsole(logger *zap.Logger) *Console {
	return &Console{logger: logger}
}

// RecordOpportunity logs the opportunity at info level.
func (c *Console) RecordOpportunity(ctx context.Context, opp *scanner.ArbitrageOpportunity) error {
	c.logger.Info("opportunity-recorded",
		zap.String("id", opp.ID),
		zap.String("pair", opp.TokenIn.Symbol+"-"+opp.TokenOut.Symbol),
		zap.String("buy-venue", opp.BuyVenue.String()),
		zap.String("sell-venue", opp.SellVenue.String()),
		zap.Float64("gross-profit-usd", opp.GrossProfitUSD),
		zap.Float64("net-profit-usd", opp.NetProfitUSD))
	return nil
}

// Close is a no-op.
func (c *Console) Close() error { return nil }
