package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/models"
)

// csvHeader is the fixed column order of a portfolio export
var csvHeader = []string{"symbol", "chain", "amount", "current_value", "invested", "pnl", "pnl_pct"}

// WriteCSV writes the merged portfolio to w in its display order. Monetary
// columns carry two decimal places; amount is trimmed to eight significant
// digits.
func WriteCSV(w io.Writer, portfolio []models.MergedPosition) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, p := range portfolio {
		record := []string{
			p.Symbol,
			string(p.Chain),
			formatAmount(p.Amount),
			p.CurrentValue.StringFixed(2),
			p.Invested.StringFixed(2),
			p.PnL.StringFixed(2),
			p.PnLPct.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	f, _ := d.Float64()
	return strconv.FormatFloat(f, 'g', 8, 64)
}
