// Package pricing resolves a base-currency price for every asset in a
// pipeline run: stablecoins by peg, native assets once per economic asset,
// and tokens through per-chain batched contract lookups.
package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/logging"
	"github.com/wallet-portfolio/internal/types"
)

// Sentinel errors shared by price sources
var (
	// ErrRateLimited indicates the provider rejected the call with a rate limit
	ErrRateLimited = errors.New("price source rate limited")

	// ErrSourceUnavailable indicates the provider could not be reached
	ErrSourceUnavailable = errors.New("price source unavailable")
)

// NativePriceSource prices chain-native economic assets in the base currency.
// Partial results are acceptable: a missing key means no quote.
type NativePriceSource interface {
	NativePrices(ctx context.Context, assets []types.EconomicAssetID) (map[types.EconomicAssetID]decimal.Decimal, error)
	SourceID() types.PriceSourceID
}

// TokenPriceSource prices token contracts on one platform in the base
// currency. Partial results are acceptable.
type TokenPriceSource interface {
	TokenPrices(ctx context.Context, platform string, contracts []string) (map[string]decimal.Decimal, error)
	SourceID() types.PriceSourceID
}

// NativeChain tries an ordered list of native price sources until one
// answers. Providers are independently swappable, which keeps every fallback
// mockable in tests.
type NativeChain struct {
	sources []NativePriceSource
}

// NewNativeChain builds a native provider chain in priority order
func NewNativeChain(sources ...NativePriceSource) *NativeChain {
	return &NativeChain{sources: sources}
}

// NativePrices returns the first successful provider's quotes. All providers
// failing yields the last error.
func (c *NativeChain) NativePrices(ctx context.Context, assets []types.EconomicAssetID) (map[types.EconomicAssetID]decimal.Decimal, error) {
	logger := logging.FromContext(ctx)

	var lastErr error
	for _, src := range c.sources {
		prices, err := src.NativePrices(ctx, assets)
		if err == nil {
			return prices, nil
		}
		lastErr = err
		logger.WithFields(map[string]interface{}{
			"source": string(src.SourceID()),
			"error":  err.Error(),
		}).Warn("native price source failed, trying next provider")
	}

	if lastErr == nil {
		lastErr = ErrSourceUnavailable
	}
	return nil, lastErr
}

// SourceID identifies the chain by its highest-priority provider
func (c *NativeChain) SourceID() types.PriceSourceID {
	if len(c.sources) == 0 {
		return types.SourceNone
	}
	return c.sources[0].SourceID()
}

// TokenChain tries an ordered list of token price sources until one answers
type TokenChain struct {
	sources []TokenPriceSource
}

// NewTokenChain builds a token provider chain in priority order
func NewTokenChain(sources ...TokenPriceSource) *TokenChain {
	return &TokenChain{sources: sources}
}

// TokenPrices returns the first successful provider's quotes
func (c *TokenChain) TokenPrices(ctx context.Context, platform string, contracts []string) (map[string]decimal.Decimal, error) {
	logger := logging.FromContext(ctx)

	var lastErr error
	for _, src := range c.sources {
		prices, err := src.TokenPrices(ctx, platform, contracts)
		if err == nil {
			return prices, nil
		}
		lastErr = err
		logger.WithFields(map[string]interface{}{
			"source":   string(src.SourceID()),
			"platform": platform,
			"error":    err.Error(),
		}).Warn("token price source failed, trying next provider")
	}

	if lastErr == nil {
		lastErr = ErrSourceUnavailable
	}
	return nil, lastErr
}

// SourceID identifies the chain by its highest-priority provider
func (c *TokenChain) SourceID() types.PriceSourceID {
	if len(c.sources) == 0 {
		return types.SourceNone
	}
	return c.sources[0].SourceID()
}
