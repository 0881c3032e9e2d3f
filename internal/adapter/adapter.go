// Package adapter provides the holding source boundary: per-chain discovery
// of native and token balances for a wallet.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/types"
)

// HoldingSource discovers raw holdings for a wallet on one chain. The
// orchestrator treats a source error as "zero holdings for this chain" and
// continues with the remaining chains.
type HoldingSource interface {
	// FetchHoldings retrieves the wallet's balances on this chain
	FetchHoldings(ctx context.Context, walletAddress string) ([]models.Holding, error)

	// ChainID returns the chain identifier
	ChainID() types.ChainID
}

// Common error types for holding sources

var (
	// ErrInvalidAddress indicates the wallet address format is invalid
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrProviderUnavailable indicates the chain RPC endpoint is unavailable
	ErrProviderUnavailable = errors.New("chain provider unavailable")
)

// SourceError wraps source failures with chain and operation context
type SourceError struct {
	Chain types.ChainID
	Op    string
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("holding source error [%s:%s]: %v", e.Chain, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// TokenMetadata describes an ERC-20 contract's display attributes
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// MetadataCache caches token metadata so repeat scans avoid on-chain
// symbol/decimals calls. Implementations are TTL-bounded.
type MetadataCache interface {
	Get(ctx context.Context, chain types.ChainID, contract string) (TokenMetadata, bool, error)
	Set(ctx context.Context, chain types.ChainID, contract string, meta TokenMetadata) error
}
