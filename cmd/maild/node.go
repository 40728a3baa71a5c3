package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"mailchain/config"
	"mailchain/core"
	"mailchain/core/events"
	"mailchain/core/genesis"
	"mailchain/core/programs"
	"mailchain/rpc"
	"mailchain/services/indexer"
	"mailchain/storage"
)

// node bundles the long-lived components of a running daemon.
type node struct {
	db        storage.Database
	processor *core.StateProcessor
	query     *core.Query
	broker    *events.Broker
	index     *indexer.Store
	server    *rpc.Server
}

// buildNode opens storage, applies genesis and wires the runtime and RPC
// server described by cfg. genesisPath overrides cfg.GenesisFile when set.
func buildNode(cfg *config.Config, genesisPath string, logger *slog.Logger) (*node, error) {
	ids, err := cfg.Programs.Resolve()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	n := &node{db: db, broker: events.NewBroker()}

	if path := resolveGenesisPath(genesisPath, cfg.GenesisFile); path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err != nil {
			n.close()
			return nil, err
		}
		applied, err := genesis.Apply(spec, db, cfg.ChainID, genesis.Programs{Mailer: ids.Mailer, MailService: ids.MailService})
		if err != nil {
			n.close()
			return nil, fmt.Errorf("apply genesis: %w", err)
		}
		logger.Info("genesis", slog.String("path", path), slog.Bool("applied", applied))
	}

	mailerProgram := programs.NewMailerProgram(ids.Mailer)
	serviceProgram := programs.NewMailServiceProgram(ids.MailService)
	registry, err := programs.NewRegistry(mailerProgram, serviceProgram, programs.NewTokenProgram(ids.Token))
	if err != nil {
		n.close()
		return nil, err
	}

	sinks := events.Multi{n.broker}
	var lister rpc.EventLister
	if cfg.Indexer.Enabled {
		n.index, err = indexer.Open(cfg.Indexer.Path, logger)
		if err != nil {
			n.close()
			return nil, fmt.Errorf("open indexer: %w", err)
		}
		sinks = append(sinks, n.index)
		lister = n.index
	}

	n.processor = core.NewStateProcessor(db, registry, cfg.ChainID)
	n.processor.SetEmitter(sinks)
	n.processor.SetLogger(logger)
	n.query = core.NewQuery(db, mailerProgram, serviceProgram, func() int64 { return time.Now().Unix() })

	var secret []byte
	if env := strings.TrimSpace(cfg.RPC.JWTSecretEnv); env != "" {
		value := strings.TrimSpace(os.Getenv(env))
		if value == "" {
			n.close()
			return nil, fmt.Errorf("rpc: %s must hold the JWT secret", env)
		}
		secret = []byte(value)
	}
	n.server = rpc.NewServer(n.processor, n.query, n.broker, lister, rpc.ServerConfig{
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateBurst:          cfg.RPC.RateBurst,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		ReadHeaderTimeout:  time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
		JWTSecret:          secret,
		Logger:             logger,
	})
	return n, nil
}

func resolveGenesisPath(flagValue, configValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if trimmed := strings.TrimSpace(os.Getenv(genesisPathEnv)); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(configValue)
}

func (n *node) shutdown(ctx context.Context) error {
	var err error
	if n.server != nil {
		err = n.server.Shutdown(ctx)
	}
	n.close()
	return err
}

func (n *node) close() {
	if n.index != nil {
		if err := n.index.Close(); err != nil && !errors.Is(err, indexer.ErrClosed) {
			slog.Warn("close indexer", "error", err)
		}
	}
	if n.db != nil {
		n.db.Close()
	}
}
