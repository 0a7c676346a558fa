package execution

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/apexmev/arbiter/pkg/config"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// cancelGasLimit is the gas budget of a zero-value self-transfer.
const cancelGasLimit = 21_000

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxStatusPending  TxStatus = "pending"
	TxStatusSuccess  TxStatus = "success"
	TxStatusReverted TxStatus = "reverted"
)

// Backend is the chain surface the executor submits through.
// *ethclient.Client satisfies it.
type Backend interface {
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Relay submits raw signed transactions to a private relay.
type Relay interface {
	SendPrivateTransaction(ctx context.Context, rawTx []byte) (common.Hash, error)
}

// ExecutorConfig holds the executor settings.
type ExecutorConfig struct {
	ChainID      *big.Int
	Wallet       common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Executor signs and submits prepared transactions, tracks their status
// and can replace pending ones.
type Executor struct {
	config  ExecutorConfig
	backend Backend
	relay   Relay
	gas     *GasOptimizer
	key     *ecdsa.PrivateKey
	logger  *zap.Logger
}

// NewExecutor creates an executor. A nil key produces a read-only executor
// that refuses to submit.
func NewExecutor(cfg ExecutorConfig, backend Backend, relay Relay, gas *GasOptimizer, key *ecdsa.PrivateKey) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Executor{
		config:  cfg,
		backend: backend,
		relay:   relay,
		gas:     gas,
		key:     key,
		logger:  cfg.Logger,
	}
}

// validate runs the structural checks every submission must pass.
func (e *Executor) validate(tx *ArbitrageTransaction) error {
	switch {
	case tx == nil:
		return fmt.Errorf("%w: nil transaction", types.ErrInvalidTransaction)
	case tx.Degraded:
		return fmt.Errorf("%w: degraded placeholder cannot be submitted", types.ErrInvalidTransaction)
	case tx.Request.To == (common.Address{}):
		return fmt.Errorf("%w: missing recipient", types.ErrInvalidTransaction)
	case tx.Request.GasLimit == 0:
		return fmt.Errorf("%w: zero gas limit", types.ErrInvalidTransaction)
	case len(tx.Request.Data) == 0:
		return fmt.Errorf("%w: empty payload", types.ErrInvalidTransaction)
	}
	return nil
}

// Execute validates, signs and submits a prepared transaction, routing
// through the relay when the build asked for it.
func (e *Executor) Execute(ctx context.Context, tx *ArbitrageTransaction) (common.Hash, error) {
	if err := e.validate(tx); err != nil {
		return common.Hash{}, err
	}
	if e.key == nil {
		return common.Hash{}, types.ErrNoSigner
	}

	nonce, err := e.backend.PendingNonceAt(ctx, e.config.Wallet)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	signed, err := e.signRequest(ctx, nonce, tx.Request)
	if err != nil {
		return common.Hash{}, err
	}

	if tx.UseMEVShare && e.relay != nil {
		raw, err := signed.MarshalBinary()
		if err != nil {
			return common.Hash{}, fmt.Errorf("encode transaction: %w", err)
		}
		hash, err := e.relay.SendPrivateTransaction(ctx, raw)
		if err != nil {
			return common.Hash{}, fmt.Errorf("relay submission: %w", err)
		}
		SubmissionsTotal.WithLabelValues("mev-share").Inc()
		e.logger.Info("transaction-submitted",
			zap.String("hash", hash.Hex()),
			zap.String("route", "mev-share"))
		return hash, nil
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	SubmissionsTotal.WithLabelValues("public").Inc()
	e.logger.Info("transaction-submitted",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("route", "public"))
	return signed.Hash(), nil
}

// signRequest builds and signs the chain transaction for a request,
// EIP-1559 typed when that strategy is active.
func (e *Executor) signRequest(ctx context.Context, nonce uint64, req types.TxRequest) (*ethtypes.Transaction, error) {
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	var unsigned *ethtypes.Transaction
	if e.gas.config.Strategy == config.GasStrategyEIP1559 {
		tip, feeCap, err := e.gas.FeeCaps(ctx)
		if err != nil {
			return nil, fmt.Errorf("fee caps: %w", err)
		}
		unsigned = ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   e.config.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       req.GasLimit,
			To:        &req.To,
			Value:     value,
			Data:      req.Data,
		})
	} else {
		gasPrice, err := e.gas.GasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price: %w", err)
		}
		unsigned = ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      req.GasLimit,
			To:       &req.To,
			Value:    value,
			Data:     req.Data,
		})
	}

	signed, err := ethtypes.SignTx(unsigned, ethtypes.LatestSignerForChainID(e.config.ChainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// TransactionStatus reports the lifecycle state of a hash. A missing
// receipt means the transaction is still pending, not an error.
func (e *Executor) TransactionStatus(ctx context.Context, hash common.Hash) (TxStatus, error) {
	receipt, err := e.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return TxStatusPending, nil
		}
		return "", fmt.Errorf("receipt %s: %w", hash.Hex(), err)
	}

	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return TxStatusSuccess, nil
	}
	return TxStatusReverted, nil
}

// WaitForTransaction polls until the transaction leaves the pending state
// or the timeout expires.
func (e *Executor) WaitForTransaction(ctx context.Context, hash common.Hash, timeout time.Duration) (TxStatus, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		status, err := e.TransactionStatus(ctx, hash)
		if err != nil {
			return "", err
		}
		if status != TxStatusPending {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			WaitTimeoutsTotal.Inc()
			return "", fmt.Errorf("%w: %s after %s", types.ErrTxTimeout, hash.Hex(), timeout)
		case <-ticker.C:
		}
	}
}

// CancelTransaction replaces a pending transaction with a zero-value
// self-transfer reusing its nonce at a 20% higher gas price.
func (e *Executor) CancelTransaction(ctx context.Context, hash common.Hash) (common.Hash, error) {
	if e.key == nil {
		return common.Hash{}, types.ErrNoSigner
	}

	original, pending, err := e.backend.TransactionByHash(ctx, hash)
	if err != nil {
		return common.Hash{}, fmt.Errorf("lookup %s: %w", hash.Hex(), err)
	}
	if !pending {
		return common.Hash{}, fmt.Errorf("transaction %s is already mined", hash.Hex())
	}

	bumped := new(big.Int).Mul(original.GasPrice(), big.NewInt(120))
	bumped.Quo(bumped, big.NewInt(100))

	replacement := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    original.Nonce(),
		GasPrice: bumped,
		Gas:      cancelGasLimit,
		To:       &e.config.Wallet,
		Value:    big.NewInt(0),
	})

	signed, err := ethtypes.SignTx(replacement, ethtypes.LatestSignerForChainID(e.config.ChainID), e.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign cancellation: %w", err)
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send cancellation: %w", err)
	}

	CancellationsTotal.Inc()
	e.logger.Info("transaction-cancelled",
		zap.String("original", hash.Hex()),
		zap.String("replacement", signed.Hash().Hex()),
		zap.Uint64("nonce", original.Nonce()))
	return signed.Hash(), nil
}
