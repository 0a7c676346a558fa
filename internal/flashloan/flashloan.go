package flashloan

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	// feeBps is the Aave flash-loan premium, 9 basis points.
	feeBps = 9

	lendingPoolABIJSON = `[
		{"inputs":[{"name":"receiverAddress","type":"address"},{"name":"assets","type":"address[]"},{"name":"amounts","type":"uint256[]"},{"name":"modes","type":"uint256[]"},{"name":"onBehalfOf","type":"address"},{"name":"params","type":"bytes"},{"name":"referralCode","type":"uint16"}],"name":"flashLoan","outputs":[],"stateMutability":"nonpayable","type":"function"}
	]`
	erc20ABIJSON = `[
		{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
	]`
)

// ContractCaller is the read-only chain access the manager needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Manager builds Aave-style flash-loan transactions. Loans are requested in
// zero-debt mode so the full principal plus premium is repaid in the same
// transaction.
type Manager struct {
	pool     common.Address
	receiver common.Address
	caller   ContractCaller
	logger   *zap.Logger

	poolABI  abi.ABI
	erc20ABI abi.ABI
}

// NewManager creates a flash-loan manager. The receiver is the deployed
// arbitrage contract that implements executeOperation.
func NewManager(pool, receiver common.Address, caller ContractCaller, logger *zap.Logger) (*Manager, error) {
	poolABI, err := abi.JSON(strings.NewReader(lendingPoolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse lending pool ABI: %w", err)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 ABI: %w", err)
	}

	return &Manager{
		pool:     pool,
		receiver: receiver,
		caller:   caller,
		logger:   logger,
		poolABI:  poolABI,
		erc20ABI: erc20ABI,
	}, nil
}

// Fee returns the flash-loan premium for a principal, rounded down.
func (m *Manager) Fee(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, big.NewInt(feeBps))
	return fee.Quo(fee, big.NewInt(10_000))
}

// MaxBorrowable reads how much of an asset the pool can lend right now,
// which is its current token balance.
func (m *Manager) MaxBorrowable(ctx context.Context, asset common.Address) (*big.Int, error) {
	data, err := m.erc20ABI.Pack("balanceOf", m.pool)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	result, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &asset, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	if len(result) < 32 {
		return nil, fmt.Errorf("balanceOf returned %d bytes", len(result))
	}

	return new(big.Int).SetBytes(result[0:32]), nil
}

// BuildLoanTransaction packs a flashLoan call for a single asset. The modes
// slice is all zeroes, requesting no debt be opened.
func (m *Manager) BuildLoanTransaction(asset common.Address, amount *big.Int, params []byte) (*types.TxRequest, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("loan amount must be positive")
	}

	data, err := m.poolABI.Pack("flashLoan",
		m.receiver,
		[]common.Address{asset},
		[]*big.Int{amount},
		[]*big.Int{big.NewInt(0)},
		m.receiver,
		params,
		uint16(0),
	)
	if err != nil {
		return nil, fmt.Errorf("pack flashLoan: %w", err)
	}

	m.logger.Debug("flash-loan-built",
		zap.String("asset", asset.Hex()),
		zap.String("amount", amount.String()),
		zap.String("fee", m.Fee(amount).String()))

	return &types.TxRequest{
		To:    m.pool,
		Value: big.NewInt(0),
		Data:  data,
	}, nil
}

// DecodeLoanAmounts unpacks the requested principals from flashLoan
// calldata.
func (m *Manager) DecodeLoanAmounts(data []byte) ([]*big.Int, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short")
	}

	method, err := m.poolABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown selector: %w", err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	amounts, ok := args[2].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amounts type %T", args[2])
	}
	return amounts, nil
}
