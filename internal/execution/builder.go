package execution

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/apexmev/arbiter/internal/contract"
	"github.com/apexmev/arbiter/internal/flashloan"
	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// callDeadline is how far in the future encoded calls stay valid.
const callDeadline = 5 * time.Minute

// ArbitrageTransaction is a fully prepared execution attempt.
type ArbitrageTransaction struct {
	Request types.TxRequest

	GasLimit          uint64
	GasPrice          *big.Int
	GasCostUSD        float64
	ExpectedProfitUSD float64

	TokenPath []common.Address
	VenuePath []string

	UseMEVShare bool

	// Degraded marks a transaction built without a deployed arbitrage
	// contract: the payload is a placeholder and must not be submitted.
	Degraded bool

	Opportunity *scanner.ArbitrageOpportunity
}

// BuilderConfig holds the builder settings.
type BuilderConfig struct {
	// SlippagePct is the tolerated slippage as a percentage; it is
	// converted to basis points for per-hop output floors.
	SlippagePct float64

	// GasLimit is the execution gas budget per attempt.
	GasLimit uint64

	// UseMEVShare routes built transactions through the relay.
	UseMEVShare bool

	Logger *zap.Logger
}

// PriceOracle supplies USD valuations for tracked assets.
type PriceOracle interface {
	PriceUSD(ctx context.Context, asset types.TrackedAsset) (float64, error)
}

// Builder turns a selected opportunity into a flash-loan wrapped
// arbitrage transaction.
type Builder struct {
	config  BuilderConfig
	loans   *flashloan.Manager
	encoder *contract.Encoder
	gas     *GasOptimizer
	oracle  PriceOracle
	logger  *zap.Logger

	now func() time.Time
}

// NewBuilder creates a transaction builder.
func NewBuilder(cfg BuilderConfig, loans *flashloan.Manager, encoder *contract.Encoder, gas *GasOptimizer, oracle PriceOracle) *Builder {
	return &Builder{
		config:  cfg,
		loans:   loans,
		encoder: encoder,
		gas:     gas,
		oracle:  oracle,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// slippageBps converts the configured percentage to basis points.
func (b *Builder) slippageBps() int64 {
	return int64(b.config.SlippagePct * 100)
}

// Build prepares the transaction for an opportunity. The flash-loan
// principal is sized at twice the estimated profit so the trade moves
// enough volume to capture the spread without outsized exposure. A missing
// deployed contract degrades the build instead of failing it.
func (b *Builder) Build(ctx context.Context, opp *scanner.ArbitrageOpportunity) (*ArbitrageTransaction, error) {
	inPrice, err := b.oracle.PriceUSD(ctx, opp.TokenIn)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", opp.TokenIn.Symbol, err)
	}
	if inPrice <= 0 {
		return nil, types.ErrPriceUnavailable
	}

	principal := opp.TokenIn.FromFloat(opp.NetProfitUSD * 2 / inPrice)
	if principal.Sign() <= 0 {
		principal = opp.TokenIn.OneUnit()
	}

	gasPrice, err := b.gas.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	tx := &ArbitrageTransaction{
		GasLimit:          b.config.GasLimit,
		GasPrice:          gasPrice,
		GasCostUSD:        opp.GasCostUSD,
		ExpectedProfitUSD: opp.NetProfitUSD,
		TokenPath:         tokenAddresses(opp),
		VenuePath:         []string{opp.BuyVenue.String(), opp.SellVenue.String()},
		UseMEVShare:       b.config.UseMEVShare,
		Opportunity:       opp,
	}

	if b.encoder == nil || !b.encoder.Deployed() {
		// No deployed contract to execute against; emit a tagged
		// placeholder the executor refuses to submit.
		tx.Degraded = true
		tx.Request = types.TxRequest{Value: big.NewInt(0), GasLimit: b.config.GasLimit}
		b.logger.Warn("transaction-degraded",
			zap.String("opportunity", opp.ID),
			zap.String("reason", "no deployed arbitrage contract"))
		return tx, nil
	}

	call, err := b.encodeCall(opp, principal)
	if err != nil {
		return nil, err
	}

	params, err := b.encoder.Encode(call)
	if err != nil {
		return nil, fmt.Errorf("encode arbitrage call: %w", err)
	}

	request, err := b.loans.BuildLoanTransaction(opp.TokenIn.Address, principal, params)
	if err != nil {
		return nil, fmt.Errorf("build flash loan: %w", err)
	}
	request.GasLimit = b.config.GasLimit
	tx.Request = *request

	b.logger.Debug("transaction-built",
		zap.String("opportunity", opp.ID),
		zap.String("principal", principal.String()),
		zap.String("loan-fee", b.loans.Fee(principal).String()),
		zap.Bool("mev-share", tx.UseMEVShare))
	return tx, nil
}

// encodeCall maps the opportunity onto an executeArbitrage call: buy on
// the venue quoting high, sell back on the venue quoting low, with
// slippage floors derived from the probe quotes.
func (b *Builder) encodeCall(opp *scanner.ArbitrageOpportunity, principal *big.Int) (contract.Call, error) {
	bps := big.NewInt(10_000 - b.slippageBps())
	minBuyOut := new(big.Int).Mul(opp.BuyAmountOut, bps)
	minBuyOut.Quo(minBuyOut, big.NewInt(10_000))

	minReturn := new(big.Int).Mul(principal, bps)
	minReturn.Quo(minReturn, big.NewInt(10_000))

	deadline := big.NewInt(b.now().Add(callDeadline).Unix())

	return contract.Call{
		Tokens: []common.Address{
			opp.TokenIn.Address, opp.TokenOut.Address, opp.TokenIn.Address,
		},
		Amounts:       []*big.Int{principal, opp.BuyAmountOut},
		MinAmountsOut: []*big.Int{minBuyOut, minReturn},
		Pools:         []common.Address{opp.BuyPool, opp.SellPool},
		Venues:        []string{opp.BuyVenue.String(), opp.SellVenue.String()},
		Deadline:      deadline,
	}, nil
}

func tokenAddresses(opp *scanner.ArbitrageOpportunity) []common.Address {
	out := make([]common.Address, 0, len(opp.Path))
	for _, tok := range opp.Path {
		out = append(out, tok.Address)
	}
	return out
}
