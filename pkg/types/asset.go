package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TrackedAsset is a token the engine watches for arbitrage.
// Assets are registered at startup from configuration and never mutated.
type TrackedAsset struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// OneUnit returns 10^decimals, one whole token in native precision.
func (a TrackedAsset) OneUnit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.Decimals)), nil)
}

// ToFloat converts a raw token amount to a whole-token float.
func (a TrackedAsset) ToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amount),
		new(big.Float).SetInt(a.OneUnit()),
	).Float64()
	return f
}

// FromFloat converts a whole-token float to a raw amount in native precision.
func (a TrackedAsset) FromFloat(amount float64) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), new(big.Float).SetInt(a.OneUnit()))
	out, _ := scaled.Int(nil)
	return out
}

func (a TrackedAsset) String() string {
	return fmt.Sprintf("%s(%s)", a.Symbol, a.Address.Hex())
}
