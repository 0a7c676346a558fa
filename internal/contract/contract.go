package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const executorABIJSON = `[
	{"inputs":[{"name":"tokens","type":"address[]"},{"name":"amounts","type":"uint256[]"},{"name":"minAmountsOut","type":"uint256[]"},{"name":"pools","type":"address[]"},{"name":"venues","type":"string[]"},{"name":"deadline","type":"uint256"}],"name":"executeArbitrage","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Call describes one executeArbitrage invocation: the token route, the
// per-hop input amounts and slippage floors, the pools to swap through and
// the venue names the contract dispatches on.
type Call struct {
	Tokens        []common.Address
	Amounts       []*big.Int
	MinAmountsOut []*big.Int
	Pools         []common.Address
	Venues        []string
	Deadline      *big.Int
}

// Encoder packs executeArbitrage calldata for the deployed arbitrage
// contract.
type Encoder struct {
	contract common.Address
	abi      abi.ABI
}

// NewEncoder creates an encoder bound to the deployed contract address.
func NewEncoder(contract common.Address) (*Encoder, error) {
	parsed, err := abi.JSON(strings.NewReader(executorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse executor ABI: %w", err)
	}
	return &Encoder{contract: contract, abi: parsed}, nil
}

// Address returns the deployed contract address.
func (e *Encoder) Address() common.Address { return e.contract }

// Deployed reports whether a contract address is configured.
func (e *Encoder) Deployed() bool { return e.contract != (common.Address{}) }

// Encode packs the executeArbitrage calldata.
func (e *Encoder) Encode(call Call) ([]byte, error) {
	if len(call.Tokens) < 2 {
		return nil, fmt.Errorf("route needs at least two tokens")
	}
	hops := len(call.Tokens) - 1
	if len(call.Amounts) != hops || len(call.MinAmountsOut) != hops ||
		len(call.Pools) != hops || len(call.Venues) != hops {
		return nil, fmt.Errorf("route with %d hops has mismatched argument lengths", hops)
	}
	if call.Deadline == nil || call.Deadline.Sign() <= 0 {
		return nil, fmt.Errorf("deadline must be positive")
	}

	data, err := e.abi.Pack("executeArbitrage",
		call.Tokens, call.Amounts, call.MinAmountsOut, call.Pools, call.Venues, call.Deadline)
	if err != nil {
		return nil, fmt.Errorf("pack executeArbitrage: %w", err)
	}
	return data, nil
}

// BuildTransaction encodes the call into an unsent request targeting the
// deployed contract.
func (e *Encoder) BuildTransaction(call Call, gasLimit uint64) (*types.TxRequest, error) {
	data, err := e.Encode(call)
	if err != nil {
		return nil, err
	}
	return &types.TxRequest{
		To:       e.contract,
		Value:    big.NewInt(0),
		Data:     data,
		GasLimit: gasLimit,
	}, nil
}
