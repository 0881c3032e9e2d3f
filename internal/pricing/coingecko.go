package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/wallet-portfolio/internal/circuitbreaker"
	"github.com/wallet-portfolio/internal/config"
	"github.com/wallet-portfolio/internal/types"
)

// geckoIDs maps economic assets to CoinGecko coin identifiers
var geckoIDs = map[types.EconomicAssetID]string{
	types.AssetEther: "ethereum",
	types.AssetPol:   "polygon",
	types.AssetBNB:   "binancecoin",
}

// CoinGeckoClient fetches native and token prices from the CoinGecko simple
// price API. Calls are rate limited and guarded by a circuit breaker so a
// degraded provider cannot stall or flood the pipeline.
type CoinGeckoClient struct {
	baseURL      string
	baseCurrency string
	httpClient   *http.Client
	limiter      *rate.Limiter
	breaker      *circuitbreaker.CircuitBreaker
}

// NewCoinGeckoClient creates a client from pricing configuration
func NewCoinGeckoClient(cfg *config.PricingConfig) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:      strings.TrimRight(cfg.CoinGeckoURL, "/"),
		baseCurrency: cfg.BaseCurrency,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker:      circuitbreaker.New(circuitbreaker.DefaultConfig("coingecko")),
	}
}

// SourceID identifies this provider
func (c *CoinGeckoClient) SourceID() types.PriceSourceID {
	return types.SourceCoinGecko
}

// NativePrices fetches base-currency prices for native economic assets
func (c *CoinGeckoClient) NativePrices(ctx context.Context, assets []types.EconomicAssetID) (map[types.EconomicAssetID]decimal.Decimal, error) {
	ids := make([]string, 0, len(assets))
	byGeckoID := make(map[string]types.EconomicAssetID, len(assets))
	for _, asset := range assets {
		id, ok := geckoIDs[asset]
		if !ok {
			continue
		}
		ids = append(ids, id)
		byGeckoID[id] = asset
	}
	if len(ids) == 0 {
		return map[types.EconomicAssetID]decimal.Decimal{}, nil
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")), url.QueryEscape(c.baseCurrency))

	data, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	prices := make(map[types.EconomicAssetID]decimal.Decimal)
	for id, quotes := range data {
		asset, ok := byGeckoID[id]
		if !ok {
			continue
		}
		if price, ok := quotes[c.baseCurrency]; ok {
			prices[asset] = decimal.NewFromFloat(price)
		}
	}
	return prices, nil
}

// TokenPrices fetches base-currency prices for token contracts on one
// platform. Contract keys in the result are lowercased.
func (c *CoinGeckoClient) TokenPrices(ctx context.Context, platform string, contracts []string) (map[string]decimal.Decimal, error) {
	if len(contracts) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	endpoint := fmt.Sprintf("%s/simple/token_price/%s?contract_addresses=%s&vs_currencies=%s",
		c.baseURL, url.PathEscape(platform),
		url.QueryEscape(strings.Join(contracts, ",")), url.QueryEscape(c.baseCurrency))

	data, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal)
	for addr, quotes := range data {
		if price, ok := quotes[c.baseCurrency]; ok {
			prices[strings.ToLower(addr)] = decimal.NewFromFloat(price)
		}
	}
	return prices, nil
}

func (c *CoinGeckoClient) fetch(ctx context.Context, endpoint string) (map[string]map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var data map[string]map[string]float64
	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return fmt.Errorf("%w: malformed response: %v", ErrSourceUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}
