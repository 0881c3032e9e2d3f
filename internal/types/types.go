// Package types provides common type definitions for the wallet portfolio system.
package types

// ChainID represents supported blockchain networks
type ChainID string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainID = "ethereum"
	// ChainPolygon represents the Polygon network
	ChainPolygon ChainID = "polygon"
	// ChainArbitrum represents the Arbitrum network
	ChainArbitrum ChainID = "arbitrum"
	// ChainOptimism represents the Optimism network
	ChainOptimism ChainID = "optimism"
	// ChainBase represents the Base network
	ChainBase ChainID = "base"
	// ChainBNB represents the BNB Chain (BSC)
	ChainBNB ChainID = "bnb"
)

// AssetKind distinguishes chain-native assets from fungible-token assets
type AssetKind string

const (
	// AssetNative represents a chain-native asset such as ETH or POL
	AssetNative AssetKind = "native"
	// AssetToken represents a contract-backed fungible token
	AssetToken AssetKind = "token"
)

// EconomicAssetID identifies the underlying priced asset of a native balance.
// Rollups that settle in the same gas token share one economic asset, so a
// single fetched quote covers all of them.
type EconomicAssetID string

const (
	// AssetEther covers Ethereum mainnet and its rollups
	AssetEther EconomicAssetID = "ethereum"
	// AssetPol covers the Polygon gas token
	AssetPol EconomicAssetID = "polygon"
	// AssetBNB covers the BNB Chain gas token
	AssetBNB EconomicAssetID = "bnb"
)

// PriceSourceID tags where a quote came from
type PriceSourceID string

const (
	// SourceStablePeg marks a quote derived from the stablecoin peg
	SourceStablePeg PriceSourceID = "stable_peg"
	// SourceCoinGecko marks a quote fetched from the CoinGecko API
	SourceCoinGecko PriceSourceID = "coingecko"
	// SourceNone marks an asset for which no source produced a price
	SourceNone PriceSourceID = "none"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
