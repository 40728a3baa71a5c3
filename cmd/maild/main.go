package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mailchain/config"
	"mailchain/observability/logging"
	telemetry "mailchain/observability/otel"
)

const (
	serviceName    = "maild"
	envVar         = "MAIL_ENV"
	genesisPathEnv = "MAIL_GENESIS"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis spec (overrides MAIL_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	env := strings.TrimSpace(os.Getenv(envVar))
	if env == "" {
		env = cfg.Log.Environment
	}
	logger := logging.SetupWithOptions(serviceName, env, logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: env,
		Network:     cfg.NetworkName,
		ChainID:     cfg.ChainID,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	n, err := buildNode(cfg, *genesisFlag, logger)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		n.close()
		return fmt.Errorf("listen %s: %w", cfg.ListenAddress, err)
	}
	logger.Info("node started",
		slog.String("network", cfg.NetworkName),
		slog.Uint64("chain_id", cfg.ChainID),
		slog.String("storage", cfg.StorageBackend),
		slog.Bool("indexer", cfg.Indexer.Enabled))

	serveErr := make(chan error, 1)
	go func() { serveErr <- n.server.Serve(listener) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.close()
			return fmt.Errorf("rpc server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.shutdown(shutdownCtx)
}
