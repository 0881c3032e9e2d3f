package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/types"
)

// Holding represents a raw balance of one asset on one chain, before any
// pricing or valuation. Holdings are produced by chain adapters and consumed
// read-only by the pipeline; a Position is derived from each one.
//
// Invariant: ContractAddress is set if and only if IsToken is true, and
// Amount is never negative.
type Holding struct {
	Symbol          string          `json:"symbol"`
	Amount          decimal.Decimal `json:"amount"`
	Chain           types.ChainID   `json:"chain"`
	CostBasis       decimal.Decimal `json:"costBasis"`
	ContractAddress string          `json:"contractAddress,omitempty"`
	Decimals        *int            `json:"decimals,omitempty"`
	IsToken         bool            `json:"isToken"`
}

// NewNativeHolding creates a Holding for a chain-native asset
func NewNativeHolding(chain types.ChainID, symbol string, amount decimal.Decimal) Holding {
	return Holding{
		Symbol: symbol,
		Amount: amount,
		Chain:  chain,
	}
}

// NewTokenHolding creates a Holding for a contract-backed token
func NewTokenHolding(chain types.ChainID, symbol, contractAddress string, amount decimal.Decimal, decimals int) Holding {
	return Holding{
		Symbol:          symbol,
		Amount:          amount,
		Chain:           chain,
		ContractAddress: strings.ToLower(contractAddress),
		Decimals:        &decimals,
		IsToken:         true,
	}
}

// Validate checks the holding invariants
func (h Holding) Validate() error {
	if h.Amount.IsNegative() {
		return fmt.Errorf("holding %s on %s has negative amount %s", h.Symbol, h.Chain, h.Amount)
	}
	if h.IsToken && h.ContractAddress == "" {
		return fmt.Errorf("token holding %s on %s is missing a contract address", h.Symbol, h.Chain)
	}
	if !h.IsToken && h.ContractAddress != "" {
		return fmt.Errorf("native holding %s on %s carries a contract address", h.Symbol, h.Chain)
	}
	return nil
}

// Kind returns the asset kind of the holding
func (h Holding) Kind() types.AssetKind {
	if h.IsToken {
		return types.AssetToken
	}
	return types.AssetNative
}
