package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// VenueKind identifies a trading venue. The set is closed: adding a venue
// means extending this enumeration and the venue registry.
type VenueKind uint8

const (
	VenueUniswapV2 VenueKind = iota
	VenueSushiswap
	VenueCurve
)

// String returns the canonical venue name.
func (v VenueKind) String() string {
	switch v {
	case VenueUniswapV2:
		return "uniswap-v2"
	case VenueSushiswap:
		return "sushiswap"
	case VenueCurve:
		return "curve"
	default:
		return "unknown"
	}
}

// AllVenueKinds lists every known venue kind in registry iteration order.
func AllVenueKinds() []VenueKind {
	return []VenueKind{VenueUniswapV2, VenueSushiswap, VenueCurve}
}

// Quote is the result of a single venue quote call. Immutable; created per
// call and consumed by the scanner or strategy engine, never retained.
type Quote struct {
	InputToken   common.Address
	OutputToken  common.Address
	InputAmount  *big.Int
	OutputAmount *big.Int
	Path         []common.Address
	Pools        []common.Address
	Venue        VenueKind
}

// PriceSample is one (source, price) observation produced during a refresh
// cycle and discarded once the consensus price is computed.
type PriceSample struct {
	Source string
	Price  float64
}
