package price

import (
	"sort"

	"github.com/apexmev/arbiter/pkg/types"
)

// Consensus reduces raw per-source samples to a single price.
//
// The median anchors the estimate, samples deviating from it by more than
// maxDeviationPct percent are discarded, and the survivors are averaged.
// When every sample is discarded the median itself is returned with an
// accepted count of zero so callers can apply their own publication policy.
func Consensus(samples []types.PriceSample, maxDeviationPct float64) (float64, int) {
	if len(samples) == 0 {
		return 0, 0
	}

	med := median(samples)
	if med == 0 {
		return 0, 0
	}

	var (
		sum      float64
		accepted int
	)
	for _, s := range samples {
		deviation := (s.Price - med) / med * 100
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > maxDeviationPct {
			continue
		}
		sum += s.Price
		accepted++
	}

	if accepted == 0 {
		return med, 0
	}
	return sum / float64(accepted), accepted
}

func median(samples []types.PriceSample) float64 {
	prices := make([]float64, len(samples))
	for i, s := range samples {
		prices[i] = s.Price
	}
	sort.Float64s(prices)

	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return (prices[n/2-1] + prices[n/2]) / 2
}
