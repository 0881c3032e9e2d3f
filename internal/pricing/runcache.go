package pricing

import (
	"sync"

	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/types"
)

// RunCache caches native-asset quotes for the duration of one pipeline
// invocation. The orchestrator creates a fresh cache per request and passes it
// in explicitly, so quote staleness is bounded by a single run and concurrent
// requests never observe each other's prices.
type RunCache struct {
	mu     sync.RWMutex
	native map[types.EconomicAssetID]models.PriceQuote
}

// NewRunCache creates an empty per-run cache
func NewRunCache() *RunCache {
	return &RunCache{native: make(map[types.EconomicAssetID]models.PriceQuote)}
}

// Native returns the cached quote for an economic asset
func (c *RunCache) Native(asset types.EconomicAssetID) (models.PriceQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quote, ok := c.native[asset]
	return quote, ok
}

// PutNative stores a quote for an economic asset
func (c *RunCache) PutNative(asset types.EconomicAssetID, quote models.PriceQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[asset] = quote
}
