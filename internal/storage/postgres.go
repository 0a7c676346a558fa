package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/apexmev/arbiter/internal/scanner"
	"go.uber.org/zap"
)

const createOpportunitiesTable = `
CREATE TABLE IF NOT EXISTS opportunities (
	id           TEXT        NOT NULL,
	detected_at  TIMESTAMPTZ NOT NULL,
	token_in     TEXT        NOT NULL,
	token_out    TEXT        NOT NULL,
	buy_venue    TEXT        NOT NULL,
	sell_venue   TEXT        NOT NULL,
	gross_usd    DOUBLE PRECISION NOT NULL,
	gas_usd      DOUBLE PRECISION NOT NULL,
	net_usd      DOUBLE PRECISION NOT NULL
)`

const insertOpportunity = `
INSERT INTO opportunities
	(id, detected_at, token_in, token_out, buy_venue, sell_venue, gross_usd, gas_usd, net_usd)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Postgres persists opportunities to a PostgreSQL table.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(dsn string, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgres(db, logger)
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgres wraps an existing connection, mainly for tests.
func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createOpportunitiesTable); err != nil {
		return fmt.Errorf("create opportunities table: %w", err)
	}
	return nil
}

// RecordOpportunity inserts one row per detected opportunity.
func (p *Postgres) RecordOpportunity(ctx context.Context, opp *scanner.ArbitrageOpportunity) error {
	_, err := p.db.ExecContext(ctx, insertOpportunity,
		opp.ID,
		opp.DetectedAt,
		opp.TokenIn.Symbol,
		opp.TokenOut.Symbol,
		opp.BuyVenue.String(),
		opp.SellVenue.String(),
		opp.GrossProfitUSD,
		opp.GasCostUSD,
		opp.NetProfitUSD,
	)
	if err != nil {
		RecordFailuresTotal.Inc()
		return fmt.Errorf("insert opportunity %s: %w", opp.ID, err)
	}

	RecordsTotal.Inc()
	return nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error { return p.db.Close() }
