package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apexmev/arbiter/internal/contract"
	"github.com/apexmev/arbiter/internal/execution"
	"github.com/apexmev/arbiter/internal/feed"
	"github.com/apexmev/arbiter/internal/flashloan"
	"github.com/apexmev/arbiter/internal/mevshare"
	"github.com/apexmev/arbiter/internal/price"
	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/internal/storage"
	"github.com/apexmev/arbiter/internal/strategy"
	"github.com/apexmev/arbiter/internal/venue"
	"github.com/apexmev/arbiter/pkg/cache"
	"github.com/apexmev/arbiter/pkg/config"
	"github.com/apexmev/arbiter/pkg/healthprobe"
	"github.com/apexmev/arbiter/pkg/httpserver"
	"github.com/apexmev/arbiter/pkg/types"
	"github.com/apexmev/arbiter/pkg/websocket"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	ethClient, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	poolCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	registry, err := setupVenues(cfg, ethClient, poolCache, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venues: %w", err)
	}

	oracle := setupOracle(cfg, registry, logger)

	healthChecker := healthprobe.New()
	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		PriceReader:   oracle,
		Assets:        cfg.Tokens,
	})

	opportunityScanner := scanner.New(scanner.Config{
		Assets:        cfg.Tokens,
		ScanInterval:  cfg.ScanInterval,
		QuietInterval: 10 * time.Second,
		QuietMode:     cfg.QuietMode,
		Logger:        logger,
	}, registry, oracle)

	engine := strategy.New(strategy.Config{
		MinProfitUSD: cfg.MinProfitThreshold,
		MaxHops:      cfg.MaxHops,
		Assets:       cfg.Tokens,
		Logger:       logger,
	}, registry, oracle)

	store, err := storage.NewFromConfig(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	builder, executor, err := setupExecution(cfg, ethClient, oracle, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup execution: %w", err)
	}

	app := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		ethClient:     ethClient,
		registry:      registry,
		oracle:        oracle,
		scanner:       opportunityScanner,
		engine:        engine,
		builder:       builder,
		executor:      executor,
		store:         store,
		ctx:           ctx,
		cancel:        cancel,
	}

	app.pipeline = NewPipeline(PipelineConfig{
		TxTimeout: cfg.TxTimeout,
		Logger:    logger,
	}, oracle, opportunityScanner, engine, builder, executor, store)

	app.blockFeed = feed.New(feed.Config{
		WSURL:        cfg.WSURL,
		PollInterval: cfg.PollInterval,
		Reconnect: websocket.ReconnectConfig{
			InitialDelay:      time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2.0,
			JitterPercent:     0.2,
			MaxAttempts:       5,
		},
		Logger: logger,
	}, ethClient, app.pipeline)

	return app, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupVenues(cfg *config.Config, client *ethclient.Client, poolCache cache.Cache, logger *zap.Logger) (*venue.Registry, error) {
	registry := venue.NewRegistry(logger)

	v2Venues := []struct {
		kind types.VenueKind
		cfg  config.VenueConfig
	}{
		{types.VenueUniswapV2, cfg.UniswapV2},
		{types.VenueSushiswap, cfg.Sushiswap},
	}
	for _, v := range v2Venues {
		if !v.cfg.Enabled {
			continue
		}
		adapter, err := venue.NewConstantProductAdapter(
			v.kind,
			common.HexToAddress(v.cfg.Factory),
			common.HexToAddress(v.cfg.Router),
			client, poolCache, logger)
		if err != nil {
			return nil, fmt.Errorf("%s adapter: %w", v.kind, err)
		}
		registry.Register(adapter)
	}

	if cfg.Curve.Enabled {
		adapter, err := venue.NewCurveAdapter(
			common.HexToAddress(cfg.Curve.Factory), client, poolCache, logger)
		if err != nil {
			return nil, fmt.Errorf("curve adapter: %w", err)
		}
		registry.Register(adapter)
	}

	if len(registry.Kinds()) == 0 {
		return nil, fmt.Errorf("no venues enabled")
	}
	return registry, nil
}

// setupOracle registers one quote-derived source per enabled venue plus
// the optional REST source, so consensus spans independent observations.
func setupOracle(cfg *config.Config, registry *venue.Registry, logger *zap.Logger) *price.Oracle {
	weth := findAsset(cfg.Tokens, "WETH")
	stable := findAsset(cfg.Tokens, "USDC")

	oracle := price.NewOracle(price.OracleConfig{
		MinSources:      cfg.MinPriceSources,
		MaxDeviationPct: cfg.MaxPriceDeviation,
		Freshness:       cfg.FreshnessWindow,
	}, weth, cfg.Tokens, logger)

	for _, kind := range registry.Kinds() {
		adapter, _ := registry.Adapter(kind)
		single := venue.NewRegistry(logger)
		single.Register(adapter)
		oracle.AddSource(price.NewVenueSource(kind.String(), single, stable, weth))
	}

	if cfg.PriceAPIURL != "" {
		oracle.AddSource(price.NewHTTPSource("rest-api", cfg.PriceAPIURL, cfg.PriceAPIKey))
	}
	return oracle
}

func setupExecution(cfg *config.Config, client *ethclient.Client, oracle *price.Oracle, logger *zap.Logger) (*execution.Builder, *execution.Executor, error) {
	gas := execution.NewGasOptimizer(execution.GasConfig{
		Strategy:          cfg.GasStrategy,
		MaxGasPriceGwei:   float64(cfg.MaxGasPriceGwei),
		BaseFeeMultiplier: cfg.BaseFeeMultiplier,
		PriorityFeeGwei:   float64(cfg.PriorityFeeGwei),
	}, client, logger)

	encoder, err := contract.NewEncoder(common.HexToAddress(cfg.ArbContract))
	if err != nil {
		return nil, nil, fmt.Errorf("contract encoder: %w", err)
	}

	loans, err := flashloan.NewManager(
		common.HexToAddress(cfg.AaveLendingPool),
		encoder.Address(),
		client, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("flash loan manager: %w", err)
	}

	key, wallet, err := loadSigner(cfg)
	if err != nil {
		return nil, nil, err
	}
	if key == nil {
		logger.Info("signer-not-configured", zap.String("mode", "detection-only"))
	}

	var relay execution.Relay
	if cfg.MEVShareEnabled {
		relay = mevshare.NewClient(mevshare.Config{
			BaseURL: cfg.MEVShareAPIURL,
			APIKey:  cfg.MEVShareAPIKey,
			Logger:  logger,
		})
	}

	builder := execution.NewBuilder(execution.BuilderConfig{
		SlippagePct: cfg.SlippageTolerance,
		GasLimit:    cfg.GasLimit,
		UseMEVShare: cfg.MEVShareEnabled,
		Logger:      logger,
	}, loans, encoder, gas, oracle)

	executor := execution.NewExecutor(execution.ExecutorConfig{
		ChainID:      big.NewInt(cfg.ChainID),
		Wallet:       wallet,
		PollInterval: time.Second,
		Logger:       logger,
	}, client, relay, gas, key)

	return builder, executor, nil
}

func loadSigner(cfg *config.Config) (*ecdsa.PrivateKey, common.Address, error) {
	if cfg.PrivateKey == "" {
		return nil, common.HexToAddress(cfg.WalletAddress), nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func findAsset(assets []types.TrackedAsset, symbol string) types.TrackedAsset {
	for _, a := range assets {
		if a.Symbol == symbol {
			return a
		}
	}
	return assets[0]
}
