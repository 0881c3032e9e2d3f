// Package main provides the API server entry point for the wallet portfolio service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wallet-portfolio/internal/adapter"
	"github.com/wallet-portfolio/internal/api"
	"github.com/wallet-portfolio/internal/calculator"
	"github.com/wallet-portfolio/internal/chains"
	"github.com/wallet-portfolio/internal/config"
	"github.com/wallet-portfolio/internal/filter"
	"github.com/wallet-portfolio/internal/logging"
	"github.com/wallet-portfolio/internal/pricing"
	"github.com/wallet-portfolio/internal/service"
	"github.com/wallet-portfolio/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.Default()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("structured logging initialized")

	// Database connections
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	// The quote archive is optional; an empty host disables it
	var archive pricing.QuoteArchiver
	if cfg.Database.ClickHouse.Host != "" {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		archive, err = storage.NewQuoteArchive(clickhouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize quote archive")
		}
		logger.Info("Quote archive enabled")
	}

	logger.Info("Database connections established")

	registry := chains.NewRegistry(cfg.Chains.Enabled)
	metadataCache := storage.NewTokenMetadataCache(redis, cfg.Database.Redis.MetadataTTL)

	// Holding sources for each enabled chain with a configured RPC endpoint
	var sources []adapter.HoldingSource
	for _, chain := range registry.Enabled() {
		chainCfg, ok := cfg.Chains.Chains[string(chain.ID)]
		if !ok || chainCfg.RPCURL == "" {
			logger.WithField("chain", string(chain.ID)).Warn("Skipping chain: no RPC endpoint configured")
			continue
		}

		tokens := make([]adapter.WatchedToken, 0, len(chainCfg.Tokens))
		for _, contract := range chainCfg.Tokens {
			tokens = append(tokens, adapter.WatchedToken{Contract: contract})
		}

		source, err := adapter.NewEVMAdapter(chain, chainCfg.RPCURL, tokens, metadataCache, chainCfg.DiscoveryLookback)
		if err != nil {
			logger.WithError(err).WithField("chain", string(chain.ID)).Warn("Failed to create adapter for chain")
			continue
		}
		defer source.Close()

		sources = append(sources, source)
		logger.WithFields(map[string]interface{}{
			"chain":  string(chain.ID),
			"tokens": len(tokens),
		}).Info("Chain adapter initialized")
	}

	if len(sources) == 0 {
		logger.Warn("No chain adapters initialized - portfolios will be empty")
	}

	// Price resolution: CoinGecko behind the provider chains
	gecko := pricing.NewCoinGeckoClient(&cfg.Pricing)
	resolver := pricing.NewResolver(
		registry,
		pricing.NewNativeChain(gecko),
		pricing.NewTokenChain(gecko),
		&cfg.Pricing,
		archive,
	)

	snapshotRepo := storage.NewSnapshotRepository(postgres.Pool())

	portfolioService := service.NewPortfolioService(
		sources,
		filter.New(),
		resolver,
		calculator.New(&cfg.Pricing),
		snapshotRepo,
		cfg.Chains,
	)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	server := api.NewServer(serverConfig, portfolioService)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}

	logger.Info("Server stopped")
}
