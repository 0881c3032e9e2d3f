package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wallet-portfolio/internal/chains"
	"github.com/wallet-portfolio/internal/config"
	"github.com/wallet-portfolio/internal/filter"
	"github.com/wallet-portfolio/internal/logging"
	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/retry"
	"github.com/wallet-portfolio/internal/types"
)

// maxConcurrentBatches bounds parallel token price requests per run
const maxConcurrentBatches = 4

// ArchiveRecord is one resolved quote written to the analytical archive
type ArchiveRecord struct {
	AssetKey  string
	Chain     types.ChainID
	Price     decimal.Decimal
	Source    types.PriceSourceID
	FetchedAt time.Time
}

// QuoteArchiver receives resolved quotes for offline staleness analysis.
// Archiving is best effort; failures never affect resolution.
type QuoteArchiver interface {
	Archive(ctx context.Context, records []ArchiveRecord) error
}

// Resolver obtains a unit price in the base currency for every holding it can,
// and an explicit "unavailable" quote for the rest. It never fails a pipeline
// run: source errors degrade the affected assets to no-price.
type Resolver struct {
	registry *chains.Registry
	native   NativePriceSource
	token    TokenPriceSource
	cfg      *config.PricingConfig
	archive  QuoteArchiver
}

// NewResolver creates a price resolver. archive may be nil.
func NewResolver(registry *chains.Registry, native NativePriceSource, token TokenPriceSource, cfg *config.PricingConfig, archive QuoteArchiver) *Resolver {
	return &Resolver{
		registry: registry,
		native:   native,
		token:    token,
		cfg:      cfg,
		archive:  archive,
	}
}

// Book holds the resolved quotes for one pipeline run
type Book struct {
	registry *chains.Registry
	cfg      *config.PricingConfig
	native   map[types.EconomicAssetID]models.PriceQuote
	token    map[types.ChainID]map[string]models.PriceQuote
}

// QuoteFor returns the quote used to value a holding. Stablecoins resolve to
// the peg, clamped into the configured band around a fetched quote when one
// exists so a real depeg within the band still shows, while a corrupted feed
// cannot distort the valuation. Assets with no quote get an explicit
// unavailable quote; nothing is left unpriced.
func (b *Book) QuoteFor(h models.Holding) models.PriceQuote {
	fetched, ok := b.lookup(h)

	if filter.IsStablecoin(h.Symbol) {
		if !ok || !fetched.Available {
			return models.PriceQuote{
				Price:     decimal.NewFromInt(1),
				Source:    types.SourceStablePeg,
				FetchedAt: time.Now().UTC(),
				Available: true,
			}
		}
		fetched.Price = clamp(fetched.Price, b.cfg.StableBandLow, b.cfg.StableBandHigh)
		return fetched
	}

	if !ok {
		return models.NoQuote()
	}
	return fetched
}

func (b *Book) lookup(h models.Holding) (models.PriceQuote, bool) {
	if h.IsToken {
		byContract, ok := b.token[h.Chain]
		if !ok {
			return models.PriceQuote{}, false
		}
		quote, ok := byContract[h.ContractAddress]
		return quote, ok
	}

	asset, ok := b.registry.NativeAsset(h.Chain)
	if !ok {
		return models.PriceQuote{}, false
	}
	quote, ok := b.native[asset]
	return quote, ok
}

func clamp(v, low, high decimal.Decimal) decimal.Decimal {
	if v.LessThan(low) {
		return low
	}
	if v.GreaterThan(high) {
		return high
	}
	return v
}

// Resolve fetches quotes for all distinct assets among the holdings. The
// returned Book always covers the full input set, with unavailable quotes
// where every source failed. cache is the per-run native quote cache owned by
// the caller.
func (r *Resolver) Resolve(ctx context.Context, holdings []models.Holding, cache *RunCache) *Book {
	book := &Book{
		registry: r.registry,
		cfg:      r.cfg,
		native:   make(map[types.EconomicAssetID]models.PriceQuote),
		token:    make(map[types.ChainID]map[string]models.PriceQuote),
	}

	nativeAssets, tokensByChain := r.collect(ctx, holdings)

	r.resolveNative(ctx, nativeAssets, cache, book)
	r.resolveTokens(ctx, tokensByChain, book)
	r.archiveQuotes(ctx, book)

	return book
}

// collect splits holdings into the distinct native economic assets and the
// distinct token contracts per chain.
func (r *Resolver) collect(ctx context.Context, holdings []models.Holding) ([]types.EconomicAssetID, map[types.ChainID][]string) {
	logger := logging.FromContext(ctx)

	nativeSet := make(map[types.EconomicAssetID]bool)
	tokenSet := make(map[types.ChainID]map[string]bool)

	for _, h := range holdings {
		if h.IsToken {
			if _, ok := r.registry.Platform(h.Chain); !ok {
				logger.WithField("chain", string(h.Chain)).Warn("no token price platform configured for chain")
				continue
			}
			if tokenSet[h.Chain] == nil {
				tokenSet[h.Chain] = make(map[string]bool)
			}
			tokenSet[h.Chain][h.ContractAddress] = true
			continue
		}

		asset, ok := r.registry.NativeAsset(h.Chain)
		if !ok {
			logger.WithField("chain", string(h.Chain)).Warn("no native price source configured for chain")
			continue
		}
		nativeSet[asset] = true
	}

	assets := make([]types.EconomicAssetID, 0, len(nativeSet))
	for asset := range nativeSet {
		assets = append(assets, asset)
	}

	tokens := make(map[types.ChainID][]string, len(tokenSet))
	for chain, contracts := range tokenSet {
		list := make([]string, 0, len(contracts))
		for contract := range contracts {
			list = append(list, contract)
		}
		tokens[chain] = list
	}

	return assets, tokens
}

// resolveNative prices each economic asset once, preferring the per-run cache
// over an external call.
func (r *Resolver) resolveNative(ctx context.Context, assets []types.EconomicAssetID, cache *RunCache, book *Book) {
	logger := logging.FromContext(ctx)

	missing := make([]types.EconomicAssetID, 0, len(assets))
	for _, asset := range assets {
		if quote, ok := cache.Native(asset); ok {
			book.native[asset] = quote
			continue
		}
		missing = append(missing, asset)
	}
	if len(missing) == 0 {
		return
	}

	var prices map[types.EconomicAssetID]decimal.Decimal
	err := retry.WithBackoff(ctx, r.rateLimitRetry(), func(ctx context.Context, attempt int) error {
		var ferr error
		prices, ferr = r.native.NativePrices(ctx, missing)
		return ferr
	})
	if err != nil {
		logger.WithError(err).Error("native price fetch failed, affected assets degrade to no price")
		return
	}

	now := time.Now().UTC()
	for _, asset := range missing {
		price, ok := prices[asset]
		if !ok {
			continue
		}
		quote := models.PriceQuote{
			Price:     price,
			Source:    r.native.SourceID(),
			FetchedAt: now,
			Available: true,
		}
		cache.PutNative(asset, quote)
		book.native[asset] = quote
	}
}

// resolveTokens prices token contracts per chain in capped batches. Batches
// run concurrently; each batch collects into its own private map and a failed
// batch degrades only its own contracts.
func (r *Resolver) resolveTokens(ctx context.Context, tokensByChain map[types.ChainID][]string, book *Book) {
	logger := logging.FromContext(ctx)

	type batch struct {
		chain     types.ChainID
		platform  string
		contracts []string
	}

	var batches []batch
	for chain, contracts := range tokensByChain {
		platform, ok := r.registry.Platform(chain)
		if !ok {
			continue
		}
		for start := 0; start < len(contracts); start += r.cfg.TokenBatchSize {
			end := min(start+r.cfg.TokenBatchSize, len(contracts))
			batches = append(batches, batch{chain: chain, platform: platform, contracts: contracts[start:end]})
		}
	}
	if len(batches) == 0 {
		return
	}

	results := make([]map[string]decimal.Decimal, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for i, b := range batches {
		g.Go(func() error {
			var prices map[string]decimal.Decimal
			err := retry.WithBackoff(gctx, r.rateLimitRetry(), func(ctx context.Context, attempt int) error {
				var ferr error
				prices, ferr = r.token.TokenPrices(ctx, b.platform, b.contracts)
				return ferr
			})
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"chain": string(b.chain),
					"size":  len(b.contracts),
					"error": err.Error(),
				}).Warn("token price batch failed, contracts degrade to no price")
				return nil // partial batch failures do not abort the rest
			}
			results[i] = prices
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now().UTC()
	for i, b := range batches {
		if results[i] == nil {
			continue
		}
		if book.token[b.chain] == nil {
			book.token[b.chain] = make(map[string]models.PriceQuote)
		}
		for contract, price := range results[i] {
			book.token[b.chain][contract] = models.PriceQuote{
				Price:     price,
				Source:    r.token.SourceID(),
				FetchedAt: now,
				Available: true,
			}
		}
	}
}

// rateLimitRetry retries rate-limit responses once after a bounded backoff
// and gives up immediately on anything else.
func (r *Resolver) rateLimitRetry() *retry.Config {
	cfg := retry.RateLimitConfig()
	cfg.Retryable = func(err error) bool {
		return errors.Is(err, ErrRateLimited)
	}
	return cfg
}

func (r *Resolver) archiveQuotes(ctx context.Context, book *Book) {
	if r.archive == nil {
		return
	}

	var records []ArchiveRecord
	for asset, quote := range book.native {
		records = append(records, ArchiveRecord{
			AssetKey:  string(asset),
			Price:     quote.Price,
			Source:    quote.Source,
			FetchedAt: quote.FetchedAt,
		})
	}
	for chain, byContract := range book.token {
		for contract, quote := range byContract {
			records = append(records, ArchiveRecord{
				AssetKey:  contract,
				Chain:     chain,
				Price:     quote.Price,
				Source:    quote.Source,
				FetchedAt: quote.FetchedAt,
			})
		}
	}
	if len(records) == 0 {
		return
	}

	if err := r.archive.Archive(ctx, records); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("quote archive write failed")
	}
}
