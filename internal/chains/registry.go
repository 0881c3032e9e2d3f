// Package chains holds the registry of supported blockchain networks and the
// mapping from each chain to its native economic asset and price platform.
package chains

import (
	"github.com/wallet-portfolio/internal/types"
)

// Chain describes one supported network
type Chain struct {
	ID           types.ChainID
	Name         string
	NativeSymbol string
	// NativeAsset is the underlying priced asset of the chain's gas token.
	// Rollups settling in ETH all map to AssetEther so one quote covers them.
	NativeAsset types.EconomicAssetID
	// Platform is the CoinGecko platform identifier for token lookups
	Platform string
}

var known = map[types.ChainID]Chain{
	types.ChainEthereum: {
		ID:           types.ChainEthereum,
		Name:         "Ethereum",
		NativeSymbol: "ETH",
		NativeAsset:  types.AssetEther,
		Platform:     "ethereum",
	},
	types.ChainArbitrum: {
		ID:           types.ChainArbitrum,
		Name:         "Arbitrum",
		NativeSymbol: "ETH",
		NativeAsset:  types.AssetEther,
		Platform:     "arbitrum-one",
	},
	types.ChainOptimism: {
		ID:           types.ChainOptimism,
		Name:         "Optimism",
		NativeSymbol: "ETH",
		NativeAsset:  types.AssetEther,
		Platform:     "optimistic-ethereum",
	},
	types.ChainBase: {
		ID:           types.ChainBase,
		Name:         "Base",
		NativeSymbol: "ETH",
		NativeAsset:  types.AssetEther,
		Platform:     "base",
	},
	types.ChainPolygon: {
		ID:           types.ChainPolygon,
		Name:         "Polygon",
		NativeSymbol: "POL",
		NativeAsset:  types.AssetPol,
		Platform:     "polygon-pos",
	},
	types.ChainBNB: {
		ID:           types.ChainBNB,
		Name:         "BNB Chain",
		NativeSymbol: "BNB",
		NativeAsset:  types.AssetBNB,
		Platform:     "binance-smart-chain",
	},
}

// Registry exposes the chains enabled for this deployment
type Registry struct {
	enabled []Chain
	byID    map[types.ChainID]Chain
}

// NewRegistry builds a registry from the enabled chain names. Unknown names
// are skipped so a typo in configuration disables one chain rather than the
// whole service.
func NewRegistry(enabledNames []string) *Registry {
	r := &Registry{byID: make(map[types.ChainID]Chain)}
	for _, name := range enabledNames {
		chain, ok := known[types.ChainID(name)]
		if !ok {
			continue
		}
		r.enabled = append(r.enabled, chain)
		r.byID[chain.ID] = chain
	}
	return r
}

// Enabled returns the enabled chains in configuration order
func (r *Registry) Enabled() []Chain {
	return r.enabled
}

// Get returns the chain descriptor for an id
func (r *Registry) Get(id types.ChainID) (Chain, bool) {
	chain, ok := r.byID[id]
	return chain, ok
}

// NativeAsset returns the economic asset backing a chain's gas token.
// The second return is false for chains with no configured price source;
// callers treat those as unpriceable rather than failing.
func (r *Registry) NativeAsset(id types.ChainID) (types.EconomicAssetID, bool) {
	chain, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return chain.NativeAsset, true
}

// Platform returns the token price platform identifier for a chain
func (r *Registry) Platform(id types.ChainID) (string, bool) {
	chain, ok := r.byID[id]
	if !ok || chain.Platform == "" {
		return "", false
	}
	return chain.Platform, true
}
