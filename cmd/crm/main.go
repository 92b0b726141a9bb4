package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/bootstrap"
	"github.com/example/growth-crm/internal/config"
	"github.com/example/growth-crm/internal/dispatch"
	"github.com/example/growth-crm/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string, stdout io.Writer) error {
	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(stdout, cfg.LoggingOptions())

	verifier, err := application.NewAPIKeyVerifier(cfg.APIKeyHash)
	if err != nil {
		return fmt.Errorf("CRM_API_KEY_HASH: %w", err)
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	sweeper, err := app.Sweeper()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}

	server := &http.Server{
		Handler:           app.Handler(verifier),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, logger, server, listener, sweeper)
}

// serve runs the HTTP server and the sweeper until ctx is cancelled or one of
// them fails, then shuts both down.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, listener net.Listener, sweeper *dispatch.Sweeper) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("crm API listening", "addr", listener.Addr().String())
		notifySystemd(logger, daemon.SdNotifyReady)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		notifySystemd(logger, daemon.SdNotifyStopping)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("crm API stopped")
		return nil
	})

	return g.Wait()
}

// notifySystemd reports state to the service manager when NOTIFY_SOCKET is set.
func notifySystemd(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("systemd notify failed", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("systemd notified", "state", state)
	}
}
