package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/types"
)

// Position represents a valued snapshot of one Holding. Monetary fields are
// rounded to two decimal places for display; Amount keeps full precision.
type Position struct {
	Symbol          string          `json:"symbol"`
	Chain           types.ChainID   `json:"chain"`
	Amount          decimal.Decimal `json:"amount"`
	Invested        decimal.Decimal `json:"invested"`
	CurrentValue    decimal.Decimal `json:"currentValue"`
	PnL             decimal.Decimal `json:"pnl"`
	PnLPct          decimal.Decimal `json:"pnlPct"`
	PriceAvailable  bool            `json:"priceAvailable"`
	Note            string          `json:"note,omitempty"`
	IsToken         bool            `json:"isToken"`
	ContractAddress string          `json:"contractAddress,omitempty"`
}

// MergedPosition aggregates all Positions sharing the same canonical asset
// identity. Amount, Invested and CurrentValue are exact sums over the
// contributing positions; PnL and PnLPct are recomputed from the sums.
type MergedPosition struct {
	Symbol          string          `json:"symbol"`
	Chain           types.ChainID   `json:"chain"`
	Amount          decimal.Decimal `json:"amount"`
	Invested        decimal.Decimal `json:"invested"`
	CurrentValue    decimal.Decimal `json:"currentValue"`
	PnL             decimal.Decimal `json:"pnl"`
	PnLPct          decimal.Decimal `json:"pnlPct"`
	PriceAvailable  bool            `json:"priceAvailable"`
	Note            string          `json:"note,omitempty"`
	IsToken         bool            `json:"isToken"`
	ContractAddress string          `json:"contractAddress,omitempty"`
	Provenance      Provenance      `json:"provenance"`
}

// Provenance is a best-effort guess at how a position entered the wallet
type Provenance struct {
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
}

// Snapshot is an immutable historical record of a wallet's portfolio, created
// only on explicit user action and read back in chronological order.
type Snapshot struct {
	ID            string           `json:"id" db:"id"`
	WalletAddress string           `json:"walletAddress" db:"wallet_address"`
	TakenAt       time.Time        `json:"takenAt" db:"taken_at"`
	TotalValue    decimal.Decimal  `json:"totalValue" db:"total_value"`
	TotalPnL      decimal.Decimal  `json:"totalPnl" db:"total_pnl"`
	Positions     []MergedPosition `json:"positions"`
}

// PriceQuote is the price of one asset in the base currency, tagged by source
// and fetch time. Quotes are transient and never persisted beyond a single
// pipeline run (the ClickHouse archive keeps an analytical copy only).
type PriceQuote struct {
	Price     decimal.Decimal     `json:"price"`
	Source    types.PriceSourceID `json:"source"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Available bool                `json:"available"`
}

// NoQuote returns the quote used for assets with no resolvable price
func NoQuote() PriceQuote {
	return PriceQuote{Source: types.SourceNone}
}
