// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Command ipwb-replay serves archived web captures over the Memento
// protocol: direct replay, TimeGate negotiation, and TimeMap
// listings, reconstructed from a content-addressed store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/edverillo/ipwb/lib/config"
	"github.com/edverillo/ipwb/lib/store"
	"github.com/edverillo/ipwb/lib/version"
	"github.com/edverillo/ipwb/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("ipwb-replay", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file")
	indexLocation := flagSet.String("index", "", "CDXJ index: local path, .gz path, or content hash")
	listen := flagSet.String("listen", "", "TCP listen address (default :2016)")
	daemonEndpoint := flagSet.String("daemon", "", "content store daemon API endpoint (default http://127.0.0.1:5001)")
	proxy := flagSet.String("proxy", "", "public scheme://host the server is reachable at, when behind a reverse proxy")
	cacheEntries := flagSet.Int("cache-size", -1, "blob cache entry count, 0 to disable (default 256)")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("ipwb-replay %s\n", version.Info())
		return nil
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	// Flags win over the config file.
	if *indexLocation != "" {
		cfg.Index.Location = *indexLocation
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *daemonEndpoint != "" {
		cfg.Store.Endpoint = *daemonEndpoint
	}
	if *proxy != "" {
		cfg.Replay.Proxy = *proxy
	}
	if *cacheEntries >= 0 {
		cfg.Store.CacheEntries = *cacheEntries
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Client = store.NewDaemonClient(store.DaemonConfig{
		Endpoint: cfg.Store.Endpoint,
		Timeout:  cfg.Store.FetchTimeout,
		Logger:   logger,
	})
	if cfg.Store.CacheEntries > 0 {
		cached, err := store.NewCachingClient(st, cfg.Store.CacheEntries)
		if err != nil {
			return fmt.Errorf("creating blob cache: %w", err)
		}
		st = cached
	}

	// Fail fast when the daemon is down: a replay server that
	// cannot fetch blobs serves nothing useful.
	liveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	alive := st.IsAlive(liveCtx)
	cancel()
	if !alive {
		return fmt.Errorf("content store daemon at %s is not responding; start it and retry",
			cfg.Store.Endpoint)
	}

	srv := server.New(server.Config{
		Replay: cfg,
		Store:  st,
		Logger: logger,
	})

	logger.Info("starting replay server",
		"version", version.Info(),
		"listen", cfg.Server.Listen,
		"index", cfg.Index.Location,
		"daemon", cfg.Store.Endpoint)

	return srv.Serve(ctx)
}

// newLogger creates the standard replay logger: a JSON handler
// writing to stderr at Info level. It also sets the default slog
// logger so that third-party code using slog.Info etc. gets the
// same handler.
func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
