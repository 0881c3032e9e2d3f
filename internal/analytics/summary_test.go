package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/types"
)

func merged(symbol string, chain types.ChainID, isToken bool, value, pnl string) models.MergedPosition {
	return models.MergedPosition{
		Symbol:       symbol,
		Chain:        chain,
		IsToken:      isToken,
		CurrentValue: decimal.RequireFromString(value),
		PnL:          decimal.RequireFromString(pnl),
	}
}

func TestSummarizeTotals(t *testing.T) {
	portfolio := []models.MergedPosition{
		merged("ETH", types.ChainEthereum, false, "6000", "1000"),
		merged("USDC", types.ChainEthereum, true, "3000", "0"),
		merged("UNI", types.ChainEthereum, true, "1000", "-500"),
	}

	s := Summarize(portfolio)

	assert.True(t, s.TotalValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, s.TotalPnL.Equal(decimal.NewFromInt(500)))
}

func TestSummarizeAllocations(t *testing.T) {
	portfolio := []models.MergedPosition{
		merged("ETH", types.ChainEthereum, false, "6000", "0"),
		merged("ETH", types.ChainArbitrum, false, "3000", "0"),
		merged("USDC", types.ChainEthereum, true, "1000", "0"),
	}

	s := Summarize(portfolio)

	require.NotNil(t, s.AllocationByAsset)
	assert.True(t, s.AllocationByAsset["ETH"].Equal(decimal.NewFromInt(90)))
	assert.True(t, s.AllocationByAsset["USDC"].Equal(decimal.NewFromInt(10)))

	assert.True(t, s.AllocationByChain["ethereum"].Equal(decimal.NewFromInt(70)))
	assert.True(t, s.AllocationByChain["arbitrum"].Equal(decimal.NewFromInt(30)))

	assert.True(t, s.ExposureByClass[ClassNative].Equal(decimal.NewFromInt(90)))
	assert.True(t, s.ExposureByClass[ClassStablecoin].Equal(decimal.NewFromInt(10)))
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	s := Summarize(nil)

	assert.True(t, s.TotalValue.IsZero())
	assert.True(t, s.TotalPnL.IsZero())
	assert.Nil(t, s.AllocationByAsset)
	assert.Nil(t, s.ExposureByClass)
}

func TestSummarizeWorthlessPortfolioSkipsBreakdowns(t *testing.T) {
	portfolio := []models.MergedPosition{
		merged("OBS", types.ChainEthereum, true, "0", "0"),
	}

	s := Summarize(portfolio)

	assert.True(t, s.TotalValue.IsZero())
	assert.Nil(t, s.AllocationByAsset)
}
