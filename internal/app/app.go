package app

import (
	"context"
	"sync"

	"github.com/apexmev/arbiter/internal/execution"
	"github.com/apexmev/arbiter/internal/feed"
	"github.com/apexmev/arbiter/internal/price"
	"github.com/apexmev/arbiter/internal/scanner"
	"github.com/apexmev/arbiter/internal/storage"
	"github.com/apexmev/arbiter/internal/strategy"
	"github.com/apexmev/arbiter/internal/venue"
	"github.com/apexmev/arbiter/pkg/config"
	"github.com/apexmev/arbiter/pkg/healthprobe"
	"github.com/apexmev/arbiter/pkg/httpserver"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	ethClient *ethclient.Client
	registry  *venue.Registry
	oracle    *price.Oracle
	scanner   *scanner.Scanner
	engine    *strategy.Engine
	builder   *execution.Builder
	executor  *execution.Executor
	store     storage.Store
	blockFeed *feed.Feed
	pipeline  *Pipeline

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
