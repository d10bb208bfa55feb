package app

import (
	"context"
	"os"
	"os/signal"
)

// onShutdown calls fn once when a shutdown signal arrives before ctx is
// done.
func onShutdown(ctx context.Context, fn func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fn()
		case <-ctx.Done():
		}
	}()
}
