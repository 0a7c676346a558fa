package strategy

import "github.com/apexmev/arbiter/pkg/types"

// gasSafetyMultiplier pads path gas estimates against execution variance.
const gasSafetyMultiplier = 1.2

// venueBaseGasUSD is the per-hop execution cost of each venue. Curve swaps
// touch more storage than constant-product pools.
var venueBaseGasUSD = map[types.VenueKind]float64{
	types.VenueUniswapV2: 0.003,
	types.VenueSushiswap: 0.003,
	types.VenueCurve:     0.005,
}

// estimateCycleGasUSD prices a full arbitrage cycle by the number of tokens
// touched, including the return to the input token.
func estimateCycleGasUSD(cycleLen int) float64 {
	switch cycleLen {
	case 3:
		return 0.005
	case 4:
		return 0.008
	default:
		return 0.012
	}
}

// estimatePathGasUSD prices a concrete route: the per-venue base cost of
// every hop plus a surcharge that grows with route length, padded by the
// safety multiplier.
func estimatePathGasUSD(venues []types.VenueKind, tokenCount int) float64 {
	var base float64
	for _, v := range venues {
		cost, ok := venueBaseGasUSD[v]
		if !ok {
			cost = 0.005
		}
		base += cost
	}

	surcharge := 0.001 * float64(tokenCount-2)
	if surcharge < 0 {
		surcharge = 0
	}
	return (base + surcharge) * gasSafetyMultiplier
}
