// Package main provides a CLI tool that assembles a wallet's portfolio,
// persists a snapshot, and optionally exports the result as CSV.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/wallet-portfolio/internal/adapter"
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
	var (
		wallet  = flag.String("wallet", "", "Wallet address to snapshot")
		csvPath = flag.String("csv", "", "Optional path to write a CSV export")
		dryRun  = flag.Bool("dry-run", false, "Assemble without persisting a snapshot")
		timeout = flag.Duration("timeout", 2*time.Minute, "Overall run timeout")
	)
	flag.Parse()

	if *wallet == "" {
		log.Fatal("Usage: snapshot -wallet <address> [-csv out.csv] [-dry-run]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.Default()

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

	registry := chains.NewRegistry(cfg.Chains.Enabled)
	metadataCache := storage.NewTokenMetadataCache(redis, cfg.Database.Redis.MetadataTTL)

	var sources []adapter.HoldingSource
	for _, chain := range registry.Enabled() {
		chainCfg, ok := cfg.Chains.Chains[string(chain.ID)]
		if !ok || chainCfg.RPCURL == "" {
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
	}

	gecko := pricing.NewCoinGeckoClient(&cfg.Pricing)
	resolver := pricing.NewResolver(
		registry,
		pricing.NewNativeChain(gecko),
		pricing.NewTokenChain(gecko),
		&cfg.Pricing,
		nil,
	)

	portfolioService := service.NewPortfolioService(
		sources,
		filter.New(),
		resolver,
		calculator.New(&cfg.Pricing),
		storage.NewSnapshotRepository(postgres.Pool()),
		cfg.Chains,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := portfolioService.Assemble(ctx, *wallet, service.AssembleOptions{Persist: !*dryRun})
	if err != nil {
		logger.WithError(err).Fatal("Portfolio assembly failed")
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create CSV file")
		}
		defer f.Close()

		if err := service.WriteCSV(f, result.Portfolio); err != nil {
			logger.WithError(err).Fatal("Failed to write CSV export")
		}
		logger.WithField("path", *csvPath).Info("CSV export written")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.WithError(err).Fatal("Failed to encode result")
	}
}
