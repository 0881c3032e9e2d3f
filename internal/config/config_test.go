package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "usd", cfg.Pricing.BaseCurrency)
	assert.Equal(t, 50, cfg.Pricing.TokenBatchSize)
	assert.Equal(t, 10*time.Second, cfg.Pricing.RequestTimeout)
	assert.True(t, cfg.Pricing.StableBandLow.Equal(decimal.RequireFromString("0.996")))
	assert.True(t, cfg.Pricing.StableBandHigh.Equal(decimal.RequireFromString("1.003")))
	assert.Equal(t, []string{"ethereum", "polygon", "arbitrum", "optimism", "base"}, cfg.Chains.Enabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENABLED_CHAINS", "ethereum, base")
	t.Setenv("ETHEREUM_RPC_URL", "https://rpc.example/eth")
	t.Setenv("PRICE_TOKEN_BATCH_SIZE", "25")
	t.Setenv("MAX_POSITION_VALUE", "5000000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"ethereum", "base"}, cfg.Chains.Enabled)
	assert.Equal(t, "https://rpc.example/eth", cfg.Chains.Chains["ethereum"].RPCURL)
	assert.Equal(t, 25, cfg.Pricing.TokenBatchSize)
	assert.True(t, cfg.Pricing.MaxPositionValue.Equal(decimal.NewFromInt(5000000)))
}

func TestLoadConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PRICE_TOKEN_BATCH_SIZE", "not-a-number")
	t.Setenv("STABLE_BAND_LOW", "garbage")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Pricing.TokenBatchSize)
	assert.True(t, cfg.Pricing.StableBandLow.Equal(decimal.RequireFromString("0.996")))
}

func TestValidateRejectsInvertedBand(t *testing.T) {
	t.Setenv("STABLE_BAND_LOW", "1.01")
	t.Setenv("STABLE_BAND_HIGH", "0.99")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "band is inverted")
}
