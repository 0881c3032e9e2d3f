package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-portfolio/internal/adapter"
	"github.com/wallet-portfolio/internal/analytics"
	"github.com/wallet-portfolio/internal/calculator"
	"github.com/wallet-portfolio/internal/chains"
	"github.com/wallet-portfolio/internal/config"
	"github.com/wallet-portfolio/internal/filter"
	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/pricing"
	"github.com/wallet-portfolio/internal/types"
)

const testWallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type fakeSource struct {
	chain    types.ChainID
	holdings []models.Holding
	err      error

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) FetchHoldings(ctx context.Context, walletAddress string) ([]models.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.holdings, nil
}

func (f *fakeSource) ChainID() types.ChainID { return f.chain }

type fakeNativeSource struct {
	mu     sync.Mutex
	calls  int
	prices map[types.EconomicAssetID]decimal.Decimal
}

func (f *fakeNativeSource) NativePrices(ctx context.Context, assets []types.EconomicAssetID) (map[types.EconomicAssetID]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.prices, nil
}

func (f *fakeNativeSource) SourceID() types.PriceSourceID { return "fake_native" }

type fakeTokenSource struct {
	mu     sync.Mutex
	calls  int
	prices map[string]decimal.Decimal
}

func (f *fakeTokenSource) TokenPrices(ctx context.Context, platform string, contracts []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make(map[string]decimal.Decimal)
	for _, c := range contracts {
		if p, ok := f.prices[c]; ok {
			out[c] = p
		}
	}
	return out, nil
}

func (f *fakeTokenSource) SourceID() types.PriceSourceID { return "fake_token" }

type memorySnapshotStore struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	persists  int
	listErr   error
}

func (m *memorySnapshotStore) Persist(ctx context.Context, walletAddress string, totalValue, totalPnL string, positions []models.MergedPosition) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persists++
	snap := models.Snapshot{
		ID:            "snap-1",
		WalletAddress: walletAddress,
		TakenAt:       time.Now(),
		TotalValue:    decimal.RequireFromString(totalValue),
		TotalPnL:      decimal.RequireFromString(totalPnL),
		Positions:     positions,
	}
	m.snapshots = append(m.snapshots, snap)
	return snap.ID, nil
}

func (m *memorySnapshotStore) ListByWallet(ctx context.Context, walletAddress string) ([]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.snapshots, nil
}

func testPricingConfig() *config.PricingConfig {
	return &config.PricingConfig{
		BaseCurrency:     "usd",
		TokenBatchSize:   50,
		RequestTimeout:   time.Second,
		StableBandLow:    decimal.RequireFromString("0.996"),
		StableBandHigh:   decimal.RequireFromString("1.003"),
		MaxPositionValue: decimal.NewFromInt(1_000_000_000),
	}
}

func toHoldingSources(sources []*fakeSource) []adapter.HoldingSource {
	out := make([]adapter.HoldingSource, len(sources))
	for i, s := range sources {
		out[i] = s
	}
	return out
}

type testEnv struct {
	svc    *PortfolioService
	native *fakeNativeSource
	token  *fakeTokenSource
	store  *memorySnapshotStore
}

func newTestEnv(t *testing.T, sources []*fakeSource, nativePrices map[types.EconomicAssetID]decimal.Decimal, tokenPrices map[string]decimal.Decimal) *testEnv {
	t.Helper()

	cfg := testPricingConfig()
	registry := chains.NewRegistry([]string{"ethereum", "arbitrum", "polygon"})
	native := &fakeNativeSource{prices: nativePrices}
	token := &fakeTokenSource{prices: tokenPrices}
	store := &memorySnapshotStore{}

	svc := NewPortfolioService(
		toHoldingSources(sources),
		filter.New(),
		pricing.NewResolver(registry, native, token, cfg, nil),
		calculator.New(cfg),
		store,
		config.ChainsConfig{},
	)
	return &testEnv{svc: svc, native: native, token: token, store: store}
}

func TestAssembleInvalidWallet(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum}
	env := newTestEnv(t, []*fakeSource{src}, nil, nil)

	_, err := env.svc.Assemble(context.Background(), "not-an-address", AssembleOptions{})
	require.ErrorIs(t, err, ErrInvalidWallet)
	assert.Zero(t, src.calls, "invalid address must fail before any fetch")
}

func TestAssembleEmptyHoldings(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum}
	env := newTestEnv(t, []*fakeSource{src}, nil, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.Portfolio)
	assert.True(t, result.TotalValue.IsZero())
	assert.True(t, result.TotalPnL.IsZero())
	assert.Zero(t, env.native.calls, "empty wallet must not invoke price resolution")
	assert.Zero(t, env.token.calls)
}

func TestAssembleOneOfThreeUnpriced(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewTokenHolding(types.ChainEthereum, "AAA", "0xaaa1", decimal.NewFromInt(10), 18),
		models.NewTokenHolding(types.ChainEthereum, "BBB", "0xbbb1", decimal.NewFromInt(5), 18),
		models.NewTokenHolding(types.ChainEthereum, "CCC", "0xccc1", decimal.NewFromInt(1), 18),
	}}
	env := newTestEnv(t, []*fakeSource{src}, nil, map[string]decimal.Decimal{
		"0xaaa1": decimal.NewFromInt(2),
		"0xbbb1": decimal.NewFromInt(4),
	})

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)
	require.Len(t, result.Portfolio, 3)

	byReadable := make(map[string]models.MergedPosition)
	for _, p := range result.Portfolio {
		byReadable[p.Symbol] = p
	}

	assert.True(t, byReadable["AAA"].PriceAvailable)
	assert.True(t, byReadable["AAA"].CurrentValue.Equal(decimal.NewFromInt(20)))
	assert.True(t, byReadable["BBB"].PriceAvailable)
	assert.True(t, byReadable["BBB"].CurrentValue.Equal(decimal.NewFromInt(20)))
	assert.False(t, byReadable["CCC"].PriceAvailable)
	assert.True(t, byReadable["CCC"].CurrentValue.IsZero())

	assert.True(t, result.TotalValue.Equal(decimal.NewFromInt(40)))
}

func TestAssembleNativeNeverMergedAcrossChains(t *testing.T) {
	ethereum := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewNativeHolding(types.ChainEthereum, "ETH", decimal.NewFromInt(2)),
	}}
	arbitrum := &fakeSource{chain: types.ChainArbitrum, holdings: []models.Holding{
		models.NewNativeHolding(types.ChainArbitrum, "ETH", decimal.NewFromInt(1)),
	}}
	env := newTestEnv(t, []*fakeSource{ethereum, arbitrum}, map[types.EconomicAssetID]decimal.Decimal{
		types.AssetEther: decimal.NewFromInt(3000),
	}, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)

	require.Len(t, result.Portfolio, 2, "same symbol on two chains must stay separate")
	assert.Equal(t, 1, env.native.calls, "rollups share one fetched quote")
	assert.True(t, result.TotalValue.Equal(decimal.NewFromInt(9000)))
}

// A holding whose cost basis rounds to zero must value cleanly instead of
// bringing the whole assembly down.
func TestAssembleDustCostBasisCompletes(t *testing.T) {
	dust := models.NewTokenHolding(types.ChainEthereum, "DUST", "0xdust", decimal.NewFromInt(1), 18)
	dust.CostBasis = decimal.RequireFromString("0.004")
	src := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{dust}}
	env := newTestEnv(t, []*fakeSource{src}, nil, map[string]decimal.Decimal{
		"0xdust": decimal.NewFromInt(1),
	})

	var result *Result
	var err error
	require.NotPanics(t, func() {
		result, err = env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	})
	require.NoError(t, err)

	require.Len(t, result.Portfolio, 1)
	assert.True(t, result.Portfolio[0].CurrentValue.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.Portfolio[0].PnLPct.IsZero())
}

func TestAssembleFailedChainDegrades(t *testing.T) {
	healthy := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewNativeHolding(types.ChainEthereum, "ETH", decimal.NewFromInt(1)),
	}}
	broken := &fakeSource{chain: types.ChainArbitrum, err: errors.New("rpc unreachable")}
	env := newTestEnv(t, []*fakeSource{healthy, broken}, map[types.EconomicAssetID]decimal.Decimal{
		types.AssetEther: decimal.NewFromInt(3000),
	}, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)

	require.Len(t, result.Portfolio, 1)
	assert.Equal(t, types.ChainEthereum, result.Portfolio[0].Chain)
}

func TestAssembleAllFiltered(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewTokenHolding(types.ChainEthereum, "ClaimAirdrop", "0xbad1", decimal.NewFromInt(100), 18),
		models.NewTokenHolding(types.ChainEthereum, "", "0xbad2", decimal.NewFromInt(1), 18),
	}}
	env := newTestEnv(t, []*fakeSource{src}, nil, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.Portfolio)
	assert.Zero(t, env.token.calls, "fully filtered wallet must not invoke price resolution")
}

func TestAssemblePersistAndPerformance(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewNativeHolding(types.ChainEthereum, "ETH", decimal.NewFromInt(2)),
	}}
	env := newTestEnv(t, []*fakeSource{src}, map[types.EconomicAssetID]decimal.Decimal{
		types.AssetEther: decimal.NewFromInt(3000),
	}, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{Persist: true})
	require.NoError(t, err)

	assert.Equal(t, "snap-1", result.SnapshotID)
	assert.Equal(t, 1, env.store.persists)
	require.Len(t, result.Performance.Timeline, 1)
	assert.True(t, result.Performance.LatestValue.Equal(decimal.NewFromInt(6000)))
}

func TestAssembleWithoutPersistTakesNoSnapshot(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewNativeHolding(types.ChainEthereum, "ETH", decimal.NewFromInt(1)),
	}}
	env := newTestEnv(t, []*fakeSource{src}, map[types.EconomicAssetID]decimal.Decimal{
		types.AssetEther: decimal.NewFromInt(3000),
	}, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.SnapshotID)
	assert.Zero(t, env.store.persists, "snapshots are taken only on explicit request")
}

func TestAssembleSummaryBreakdowns(t *testing.T) {
	src := &fakeSource{chain: types.ChainEthereum, holdings: []models.Holding{
		models.NewNativeHolding(types.ChainEthereum, "ETH", decimal.NewFromInt(3)),
		models.NewTokenHolding(types.ChainEthereum, "USDC", "0xusdc", decimal.NewFromInt(1000), 6),
	}}
	env := newTestEnv(t, []*fakeSource{src}, map[types.EconomicAssetID]decimal.Decimal{
		types.AssetEther: decimal.NewFromInt(3000),
	}, nil)

	result, err := env.svc.Assemble(context.Background(), testWallet, AssembleOptions{})
	require.NoError(t, err)

	// 9000 native + 1000 stable peg
	assert.True(t, result.TotalValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, result.Summary.ExposureByClass["native"].Equal(decimal.NewFromInt(90)))
	assert.True(t, result.Summary.ExposureByClass["stablecoin"].Equal(decimal.NewFromInt(10)))

	provenance := make(map[string]string)
	for _, p := range result.Portfolio {
		provenance[p.Symbol] = p.Provenance.Source
	}
	assert.Equal(t, analytics.SourceNative, provenance["ETH"])
	assert.Equal(t, analytics.SourceAirdropOrTransfer, provenance["USDC"], "zero cost basis token reads as airdropped or transferred in")
}

func TestHistoryInvalidWallet(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	_, err := env.svc.History(context.Background(), "oops")
	require.ErrorIs(t, err, ErrInvalidWallet)
}
