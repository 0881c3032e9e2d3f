// Package analytics derives summary and time-series metrics from portfolios
// and their stored snapshots.
package analytics

import (
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/models"
)

// TimelinePoint is one snapshot's contribution to the performance series
type TimelinePoint struct {
	TakenAt    time.Time       `json:"takenAt"`
	TotalValue decimal.Decimal `json:"totalValue"`
	TotalPnL   decimal.Decimal `json:"totalPnl"`
	ROI        decimal.Decimal `json:"roi"`
}

// Performance summarizes a wallet's snapshot history
type Performance struct {
	InitialValue decimal.Decimal `json:"initialValue"`
	LatestValue  decimal.Decimal `json:"latestValue"`
	TotalPnL     decimal.Decimal `json:"totalPnl"`
	Timeline     []TimelinePoint `json:"timeline"`
}

// roiPlaces bounds the ROI quotient's precision
const roiPlaces = 6

// baseline returns the ROI denominator for a history. A zero first value is
// substituted with 1 to keep ROI defined; this is an approximation, not a
// true baseline, and only matters for wallets first snapshotted while empty.
func baseline(history []models.Snapshot) decimal.Decimal {
	if history[0].TotalValue.IsZero() {
		return decimal.NewFromInt(1)
	}
	return history[0].TotalValue
}

// Timeline yields one point per snapshot in the input's chronological order.
// The sequence is lazy and restartable; ranging over it twice replays the
// same finite series.
func Timeline(history []models.Snapshot) iter.Seq[TimelinePoint] {
	return func(yield func(TimelinePoint) bool) {
		if len(history) == 0 {
			return
		}
		initial := baseline(history)

		for _, snap := range history {
			point := TimelinePoint{
				TakenAt:    snap.TakenAt,
				TotalValue: snap.TotalValue,
				TotalPnL:   snap.TotalPnL,
				ROI:        snap.TotalValue.Sub(initial).DivRound(initial, roiPlaces),
			}
			if !yield(point) {
				return
			}
		}
	}
}

// Analyze computes performance metrics from a wallet's snapshot history,
// which must already be in ascending time order. An empty history yields the
// zero Performance, not an error.
func Analyze(history []models.Snapshot) Performance {
	if len(history) == 0 {
		return Performance{
			InitialValue: decimal.Zero,
			LatestValue:  decimal.Zero,
			TotalPnL:     decimal.Zero,
		}
	}

	perf := Performance{
		InitialValue: baseline(history),
		LatestValue:  history[len(history)-1].TotalValue,
		TotalPnL:     history[len(history)-1].TotalPnL,
		Timeline:     make([]TimelinePoint, 0, len(history)),
	}
	for point := range Timeline(history) {
		perf.Timeline = append(perf.Timeline, point)
	}
	return perf
}
