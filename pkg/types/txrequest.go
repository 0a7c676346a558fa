package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest is an unsent transaction payload produced by the capability
// adapters and consumed by the execution builder.
type TxRequest struct {
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}
