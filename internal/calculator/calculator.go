// Package calculator turns a priced holding into a valued position record.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/config"
	"github.com/wallet-portfolio/internal/models"
)

// moneyPlaces is the display precision for monetary fields. Amounts keep
// full precision so merge sums stay exact.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Calculator derives positions from holdings and quotes
type Calculator struct {
	maxValue decimal.Decimal
}

// New creates a calculator with the configured valuation cap
func New(cfg *config.PricingConfig) *Calculator {
	return &Calculator{maxValue: cfg.MaxPositionValue}
}

// Calculate derives a Position from a holding and its quote. The second
// return is false when no position should exist (non-positive amount).
//
// A missing or non-positive price still yields a position: value zero,
// PriceAvailable false, and a full loss relative to cost basis when one was
// recorded. A value above the configured maximum is clamped to exactly the
// cap and flagged with a note, which neutralizes corrupted or manipulated
// price feeds without dropping the position.
func (c *Calculator) Calculate(h models.Holding, quote models.PriceQuote) (models.Position, bool) {
	if !h.Amount.IsPositive() {
		return models.Position{}, false
	}

	invested := h.Amount.Mul(h.CostBasis)

	pos := models.Position{
		Symbol:          h.Symbol,
		Chain:           h.Chain,
		Amount:          h.Amount,
		Invested:        invested.Round(moneyPlaces),
		IsToken:         h.IsToken,
		ContractAddress: h.ContractAddress,
	}

	if !quote.Available || !quote.Price.IsPositive() {
		pos.CurrentValue = decimal.Zero
		pos.PriceAvailable = false
		if pos.Invested.IsPositive() {
			pos.PnL = pos.Invested.Neg()
			pos.PnLPct = hundred.Neg()
		} else {
			pos.PnL = decimal.Zero
			pos.PnLPct = decimal.Zero
		}
		return pos, true
	}

	value := h.Amount.Mul(quote.Price)
	if value.GreaterThan(c.maxValue) {
		value = c.maxValue
		pos.Note = fmt.Sprintf("value capped at %s", c.maxValue)
	}

	pos.CurrentValue = value.Round(moneyPlaces)
	pos.PriceAvailable = true
	pos.PnL = pos.CurrentValue.Sub(pos.Invested)

	// Guard on the rounded basis, not the raw product: a cost basis small
	// enough to round to 0.00 must be treated as zero-cost or the division
	// below would divide by zero.
	if pos.Invested.IsPositive() {
		pos.PnLPct = pos.PnL.Div(pos.Invested).Mul(hundred).Round(moneyPlaces)
	} else {
		// Zero-cost holdings report no percentage: there is no basis to
		// divide by, and zero here means "undefined", not break-even.
		pos.PnLPct = decimal.Zero
	}

	return pos, true
}
