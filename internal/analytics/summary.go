package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/filter"
	"github.com/wallet-portfolio/internal/models"
)

const pctPlaces = 2

// Summary holds portfolio-level totals and composition breakdowns
type Summary struct {
	TotalValue        decimal.Decimal            `json:"totalValue"`
	TotalPnL          decimal.Decimal            `json:"totalPnl"`
	AllocationByAsset map[string]decimal.Decimal `json:"allocationByAsset,omitempty"`
	AllocationByChain map[string]decimal.Decimal `json:"allocationByChain,omitempty"`
	ExposureByClass   map[string]decimal.Decimal `json:"exposureByClass,omitempty"`
}

// Asset class labels for exposure breakdowns
const (
	ClassNative     = "native"
	ClassStablecoin = "stablecoin"
	ClassToken      = "token"
)

// Summarize computes totals and composition percentages over a merged
// portfolio. An empty or worthless portfolio yields zero totals and nil
// breakdowns.
func Summarize(portfolio []models.MergedPosition) Summary {
	s := Summary{
		TotalValue: decimal.Zero,
		TotalPnL:   decimal.Zero,
	}

	for _, p := range portfolio {
		s.TotalValue = s.TotalValue.Add(p.CurrentValue)
		s.TotalPnL = s.TotalPnL.Add(p.PnL)
	}

	if !s.TotalValue.IsPositive() {
		return s
	}

	byAsset := make(map[string]decimal.Decimal)
	byChain := make(map[string]decimal.Decimal)
	byClass := make(map[string]decimal.Decimal)

	for _, p := range portfolio {
		byAsset[p.Symbol] = byAsset[p.Symbol].Add(p.CurrentValue)
		byChain[string(p.Chain)] = byChain[string(p.Chain)].Add(p.CurrentValue)
		byClass[classOf(p)] = byClass[classOf(p)].Add(p.CurrentValue)
	}

	s.AllocationByAsset = toPercentages(byAsset, s.TotalValue)
	s.AllocationByChain = toPercentages(byChain, s.TotalValue)
	s.ExposureByClass = toPercentages(byClass, s.TotalValue)
	return s
}

func classOf(p models.MergedPosition) string {
	switch {
	case !p.IsToken:
		return ClassNative
	case filter.IsStablecoin(p.Symbol):
		return ClassStablecoin
	default:
		return ClassToken
	}
}

func toPercentages(values map[string]decimal.Decimal, total decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(values))
	for key, value := range values {
		out[key] = value.Div(total).Mul(decimal.NewFromInt(100)).Round(pctPlaces)
	}
	return out
}
