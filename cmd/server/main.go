// Package main - Entry point for the VAT cost quoting server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vat-cost/adapters/storage"
	"vat-cost/api"
	"vat-cost/core/catalog"
	"vat-cost/core/engine"
	"vat-cost/internal/config"
	"vat-cost/internal/logging"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "config.json", "Config file")
	envFile := flag.String("env", ".env", "Optional .env file")
	addr := flag.String("addr", "", "Server address (overrides config)")
	catalogPath := flag.String("catalog", "", "Catalog file or directory (overrides config)")
	flag.Parse()

	if err := run(*cfgPath, *envFile, *addr, *catalogPath); err != nil {
		fmt.Fprintf(os.Stderr, "vat-cost-server: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, envFile, addr, catalogPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()
	logger := logging.Logger

	snap, err := catalog.LoadHCL(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	countries, services, rules := snap.Stats()
	logger.Info("catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("countries", countries),
		zap.Int("services", services),
		zap.Int("rules", rules),
	)

	backend := storage.BackendSQLite
	if !cfg.Storage.Enabled {
		backend = storage.BackendMemory
	}
	store, err := storage.Open(backend, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	eng := engine.New(snap, cfg.Engine(), logger)
	handler := api.NewHandler(eng, snap, store, version, logger)
	server := api.NewServer(cfg.Server.Addr, handler, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.ListenAndServe(ctx)
}
