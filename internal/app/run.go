package app

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts all components and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("starting-arbiter",
		zap.String("http-port", a.cfg.HTTPPort),
		zap.Int64("chain-id", a.cfg.ChainID),
		zap.Int("tracked-assets", len(a.cfg.Tokens)),
		zap.Strings("venues", venueNames(a)))

	a.startComponents()

	a.waitForShutdown()

	return a.Shutdown()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		a.healthChecker.SetComponentReady("http-server", true)
		err := a.httpServer.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http-server-failed", zap.Error(err))
		}
	}()

	a.blockFeed.Start(a.ctx)
	a.healthChecker.SetComponentReady("block-feed", true)
	a.healthChecker.SetComponentReady("pipeline", true)

	a.logger.Info("components-started")
}

func (a *App) waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}
}

func venueNames(a *App) []string {
	kinds := a.registry.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return names
}
