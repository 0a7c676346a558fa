package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Shutdown stops all components in reverse startup order.
func (a *App) Shutdown() error {
	a.logger.Info("shutting-down")

	a.healthChecker.SetComponentReady("block-feed", false)
	a.healthChecker.SetComponentReady("pipeline", false)

	a.cancel()

	a.blockFeed.Stop()
	a.pipeline.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.httpServer.Shutdown(ctx)
	if err != nil {
		a.logger.Error("http-server-shutdown-failed", zap.Error(err))
	}
	a.healthChecker.SetComponentReady("http-server", false)

	if closeErr := a.store.Close(); closeErr != nil {
		a.logger.Error("storage-close-failed", zap.Error(closeErr))
	}

	a.ethClient.Close()
	a.wg.Wait()

	a.logger.Info("shutdown-complete")
	return err
}
