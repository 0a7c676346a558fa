package storage

import (
	"context"
	"fmt"

	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/pkg/config"
	"go.uber.org/zap"
)

// Store records detected opportunities for later analysis. Nothing is ever
// read back at runtime.
type Store interface {
	RecordOpportunity(ctx context.Context, opp *scanner.ArbitrageOpportunity) error
	Close() error
}

// NewFromConfig selects the store implementation from configuration.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StorageMode {
	case config.StorageModeConsole, "":
		return NewConsole(logger), nil
	case config.StorageModePostgres:
		return OpenPostgres(cfg.PostgresDSN(), logger)
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}
}
