package filter

import "strings"

// stablecoins are symbols assumed pegged to the base currency. Membership
// short-circuits the external price lookup; the resolver still clamps a
// fetched quote into a narrow band around the peg.
var stablecoins = map[string]bool{
	"USDT": true,
	"USDC": true,
	"DAI":  true,
	"BUSD": true,
	"TUSD": true,
	"USDP": true,
	"GUSD": true,
	"FRAX": true,
	"USD1": true,
}

// IsStablecoin reports whether a symbol is a known base-currency stablecoin
func IsStablecoin(symbol string) bool {
	return stablecoins[strings.ToUpper(strings.TrimSpace(symbol))]
}
