package analytics

import (
	"github.com/wallet-portfolio/internal/models"
)

// Provenance sources
const (
	SourceNative            = "native"
	SourceAirdropOrTransfer = "airdrop_or_transfer"
	SourceSwap              = "swap"
)

// Provenance confidence levels
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// InferProvenance classifies how a position was acquired. Native balances
// accrue on chain directly. A token with no recorded cost basis was most
// likely airdropped or transferred in; one with a basis was bought, so the
// acquisition is labeled a swap.
func InferProvenance(p models.MergedPosition) models.Provenance {
	if !p.IsToken {
		return models.Provenance{Source: SourceNative, Confidence: ConfidenceHigh}
	}
	if !p.Invested.IsPositive() {
		return models.Provenance{Source: SourceAirdropOrTransfer, Confidence: ConfidenceMedium}
	}
	return models.Provenance{Source: SourceSwap, Confidence: ConfidenceHigh}
}

// AnnotateProvenance stamps every position in place with its inferred
// provenance
func AnnotateProvenance(portfolio []models.MergedPosition) {
	for i := range portfolio {
		portfolio[i].Provenance = InferProvenance(portfolio[i])
	}
}
