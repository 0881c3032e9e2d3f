// Package merge aggregates positions sharing the same canonical asset
// identity into one entry per asset per chain.
package merge

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/types"
)

// nativeMarker is the contract slot of the canonical key for native assets
const nativeMarker = "native"

// moneyPlaces matches the calculator's display precision
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// AssetKey is the canonical grouping identity: normalized symbol, chain, and
// contract address or native marker. Identical symbols on two chains are
// distinct keys, and wrapped/native variants of the same economic asset stay
// separate: chain-level transparency is the product decision here, not an
// oversight.
type AssetKey struct {
	Symbol   string
	Chain    types.ChainID
	Contract string
}

// CanonicalSymbol normalizes a symbol for grouping: trimmed and uppercased,
// with no cross-asset mapping (WETH never becomes ETH).
func CanonicalSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

// KeyFor returns the canonical asset key of a position
func KeyFor(p models.Position) AssetKey {
	contract := nativeMarker
	if p.IsToken {
		contract = strings.ToLower(p.ContractAddress)
	}
	return AssetKey{
		Symbol:   CanonicalSymbol(p.Symbol),
		Chain:    p.Chain,
		Contract: contract,
	}
}

// Merge aggregates positions by canonical asset key. Amount, invested and
// current value are exact sums; PnL and PnLPct are recomputed from the sums
// rather than averaged, which avoids weighting bias. Output is ordered by
// current value descending, stable on input order for equal values.
func Merge(positions []models.Position) []models.MergedPosition {
	type bucket struct {
		merged models.MergedPosition
		order  int
	}

	buckets := make(map[AssetKey]*bucket)
	var keys []AssetKey

	for _, p := range positions {
		key := KeyFor(p)
		b, ok := buckets[key]
		if !ok {
			contract := ""
			if p.IsToken {
				contract = key.Contract
			}
			b = &bucket{
				merged: models.MergedPosition{
					Symbol:          key.Symbol,
					Chain:           p.Chain,
					Amount:          decimal.Zero,
					Invested:        decimal.Zero,
					CurrentValue:    decimal.Zero,
					IsToken:         p.IsToken,
					// normalized so output does not depend on which
					// contributor arrived first
					ContractAddress: contract,
				},
				order: len(keys),
			}
			buckets[key] = b
			keys = append(keys, key)
		}

		b.merged.Amount = b.merged.Amount.Add(p.Amount)
		b.merged.Invested = b.merged.Invested.Add(p.Invested)
		b.merged.CurrentValue = b.merged.CurrentValue.Add(p.CurrentValue)
		// any priced contributor makes the aggregate priced
		if p.PriceAvailable {
			b.merged.PriceAvailable = true
		}
		if b.merged.Note == "" {
			b.merged.Note = p.Note
		}
	}

	merged := make([]models.MergedPosition, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		m := b.merged
		m.Invested = m.Invested.Round(moneyPlaces)
		m.CurrentValue = m.CurrentValue.Round(moneyPlaces)
		m.PnL = m.CurrentValue.Sub(m.Invested)
		if m.Invested.IsPositive() {
			m.PnLPct = m.PnL.Div(m.Invested).Mul(hundred).Round(moneyPlaces)
		} else {
			m.PnLPct = decimal.Zero
		}
		merged = append(merged, m)
	}

	// descending by value; SliceStable keeps input order for ties
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CurrentValue.GreaterThan(merged[j].CurrentValue)
	})

	return merged
}
