package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals are the signals that ask the scheduler loop to stop
// between passes rather than mid-write.
var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// shutdownContext derives a context that cancels the moment one of
// shutdownSignals arrives, giving a RunOnce call time to finish applying
// its current phase before the process exits (§4.6 failure semantics:
// a pass should fail actions cleanly rather than leave a file half
// written). A second signal after that skips the wait and exits
// immediately, for the case where a pass is stuck.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, shutdownSignals...)

	go func() {
		defer signal.Stop(signals)

		first, ok := waitForSignalOrDone(signals, ctx.Done())
		if !ok {
			return
		}

		logger.Info("received signal, initiating graceful shutdown", slog.String("signal", first.String()))
		cancel()

		second, ok := waitForSignalOrDone(signals, parent.Done())
		if !ok {
			return
		}

		logger.Warn("received second signal, forcing exit", slog.String("signal", second.String()))
		os.Exit(1)
	}()

	return ctx
}

// waitForSignalOrDone blocks until either a signal arrives on sigCh (ok is
// true) or done closes first (ok is false).
func waitForSignalOrDone(sigCh <-chan os.Signal, done <-chan struct{}) (os.Signal, bool) {
	select {
	case sig := <-sigCh:
		return sig, true
	case <-done:
		return nil, false
	}
}

// reloadOnSIGHUP returns a channel that receives a value every time the
// process gets SIGHUP, for triggering an immediate sync pass without
// waiting for the next interval tick (paired with signalRunningDaemon in
// pidfile.go, which is what `sync reload` uses to deliver it). The
// returned channel is never closed; it is simply abandoned when ctx is
// done.
func reloadOnSIGHUP(ctx context.Context, logger *slog.Logger) <-chan struct{} {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	reload := make(chan struct{}, 1)

	go func() {
		defer signal.Stop(sigCh)

		for {
			select {
			case <-sigCh:
				logger.Info("received SIGHUP, triggering an immediate sync pass")

				select {
				case reload <- struct{}{}:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return reload
}
