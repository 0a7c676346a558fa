package types

import "errors"

// Sentinel errors shared across the pipeline. Data-absence conditions
// (no pool, no quote, no receipt yet) are normal negative results and are
// matched with errors.Is rather than treated as failures.
var (
	// ErrNoPool means a venue has no pool for the requested pair.
	ErrNoPool = errors.New("no pool for token pair")

	// ErrNoQuote means no venue returned a usable quote.
	ErrNoQuote = errors.New("no quote available")

	// ErrPriceUnavailable means the consensus cache holds no price for a token.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrNoProfitablePath means no candidate path survives the cost model.
	ErrNoProfitablePath = errors.New("no profitable path")

	// ErrNoSigner means a signing key is required but not configured.
	ErrNoSigner = errors.New("no signing key configured")

	// ErrTxTimeout means a transaction wait expired before confirmation.
	ErrTxTimeout = errors.New("transaction confirmation timed out")

	// ErrInvalidTransaction means structural validation rejected a
	// transaction before submission.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrMEVShareDisabled means a private order-flow call was made while the
	// relay integration is disabled.
	ErrMEVShareDisabled = errors.New("mev-share is not enabled")
)
