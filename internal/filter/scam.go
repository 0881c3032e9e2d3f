// Package filter classifies holdings that should be suppressed before
// valuation: phishing lures, dust, and malformed token symbols.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wallet-portfolio/internal/models"
)

// Suppression reasons
const (
	ReasonMissingSymbol   = "missing_symbol"
	ReasonKnownScamSymbol = "known_scam_symbol"
	ReasonSymbolLength    = "symbol_length"
	ReasonNonAlphanumeric = "non_alphanumeric"
	ReasonZeroAmount      = "zero_amount"
)

// maxSymbolLength bounds legitimate ticker symbols; scam tokens routinely
// embed full sentences or URLs in the symbol field.
const maxSymbolLength = 16

// knownScamSymbols are deliberately confusable variants of legitimate symbols
// seen as dust airdrops.
var knownScamSymbols = map[string]bool{
	"xeth": true,
	"ethg": true,
	"ethe": true,
	"etth": true,
	"ethx": true,
}

// scamKeywords are phishing lure words and URL fragments
var scamKeywords = []string{
	"airdrop",
	"claim",
	"reward",
	"visit",
	"verify",
	"bonus",
	"http",
	"www",
	".com",
	".net",
	".io",
	".xyz",
}

var symbolCharset = regexp.MustCompile(`^[a-z0-9\-_.]+$`)

// ScamFilter classifies holdings as legitimate or suppressed. Classification
// is pure: no I/O, no state, and malformed input yields a conservative
// "suppressed" result instead of an error.
type ScamFilter struct{}

// New creates a scam filter
func New() *ScamFilter {
	return &ScamFilter{}
}

// Classify returns whether the holding should be suppressed and why.
// All symbol checks are case-insensitive. Chain-native assets are exempt from
// the format checks: their symbols come from the chain registry, not from
// user- or contract-supplied metadata.
func (f *ScamFilter) Classify(h models.Holding) (suppressed bool, reason string) {
	sym := strings.ToLower(strings.TrimSpace(h.Symbol))
	if sym == "" {
		return true, ReasonMissingSymbol
	}

	if !h.IsToken {
		return false, ""
	}

	if knownScamSymbols[sym] {
		return true, ReasonKnownScamSymbol
	}

	for _, kw := range scamKeywords {
		if strings.Contains(sym, kw) {
			return true, fmt.Sprintf("keyword:%s", kw)
		}
	}

	if len([]rune(sym)) > maxSymbolLength {
		return true, ReasonSymbolLength
	}

	if !symbolCharset.MatchString(sym) {
		return true, ReasonNonAlphanumeric
	}

	if h.Amount.IsZero() {
		return true, ReasonZeroAmount
	}

	return false, ""
}
