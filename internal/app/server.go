package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

const engineTask = "authenticator.engine"

// Start runs the code engine and the HTTP server on the configured address.
// The returned channel closes once a termination signal has been received.
func (a *App) Start() <-chan struct{} {
	a.startEngine()

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	done := make(chan struct{})
	go func() {
		ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-ctx.Done()
		slog.Info("termination signal received")
		a.cancel()
		close(done)
	}()

	return done
}

// Serve is Start on a caller-provided listener and without signal handling.
// The channel yields the server's exit error.
func (a *App) Serve(l net.Listener) <-chan error {
	a.startEngine()

	errc := make(chan error, 1)
	go func() {
		errc <- a.httpServer.Serve(l)
		close(errc)
	}()

	return errc
}

func (a *App) startEngine() {
	if !a.goroutine.Go(a.ctx, engineTask, a.authenticator.Run) {
		slog.Error("failed to start code engine")
		os.Exit(1)
	}
}

// Stop cancels the engine, drains HTTP, waits for background tasks and then
// runs the closers in order. The registry flush is the first closer.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shut down http server", "error", err)
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background tasks reported errors", "error", err)
	}

	for _, c := range a.closers {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application stopped")
}
