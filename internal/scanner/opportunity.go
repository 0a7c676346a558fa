package scanner

import (
	"fmt"
	"math/big"
	"time"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// ArbitrageOpportunity is a detected cross-venue price discrepancy: buying
// on the venue quoting the most output and selling on the one quoting the
// least for the same input.
type ArbitrageOpportunity struct {
	// ID is deterministic for a given pair and venue combination so the
	// same discrepancy detected twice carries the same identity.
	ID string

	TokenIn  types.TrackedAsset
	TokenOut types.TrackedAsset

	BuyVenue  types.VenueKind
	SellVenue types.VenueKind

	// BuyPool and SellPool are the pools behind the two quotes, when the
	// venue adapters reported them.
	BuyPool  common.Address
	SellPool common.Address

	// AmountIn is the probe input, one unit of TokenIn.
	AmountIn *big.Int

	// BuyAmountOut and SellAmountOut are the best and worst venue outputs
	// in TokenOut units.
	BuyAmountOut  *big.Int
	SellAmountOut *big.Int

	GrossProfitUSD float64
	GasCostUSD     float64
	NetProfitUSD   float64

	// Path is the token route; the scanner emits direct two-token routes
	// and the strategy engine may extend it.
	Path []types.TrackedAsset

	DetectedAt time.Time
}

// OpportunityID derives the deterministic identity for a pair and the two
// venues involved.
func OpportunityID(tokenIn, tokenOut types.TrackedAsset, buy, sell types.VenueKind) string {
	return fmt.Sprintf("%s-%s:%s>%s", tokenIn.Symbol, tokenOut.Symbol, buy, sell)
}
