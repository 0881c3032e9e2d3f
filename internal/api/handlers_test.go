package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-portfolio/internal/analytics"
	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/service"
	"github.com/wallet-portfolio/internal/types"
)

const testWallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type mockPortfolioService struct {
	result      *service.Result
	snapshots   []models.Snapshot
	performance analytics.Performance
	err         error

	lastOpts service.AssembleOptions
}

func (m *mockPortfolioService) Assemble(ctx context.Context, walletAddress string, opts service.AssembleOptions) (*service.Result, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockPortfolioService) History(ctx context.Context, walletAddress string) ([]models.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshots, nil
}

func (m *mockPortfolioService) Performance(ctx context.Context, walletAddress string) (analytics.Performance, error) {
	if m.err != nil {
		return analytics.Performance{}, m.err
	}
	return m.performance, nil
}

func newTestServer(mock *mockPortfolioService) *Server {
	return NewServer(&ServerConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  5 * time.Second,
	}, mock)
}

func testResult() *service.Result {
	return &service.Result{
		WalletAddress: testWallet,
		Portfolio: []models.MergedPosition{
			{
				Symbol:         "ETH",
				Chain:          types.ChainEthereum,
				Amount:         decimal.NewFromInt(2),
				CurrentValue:   decimal.NewFromInt(6000),
				PnL:            decimal.NewFromInt(6000),
				PriceAvailable: true,
			},
		},
		TotalValue: decimal.NewFromInt(6000),
		TotalPnL:   decimal.NewFromInt(6000),
	}
}

func TestHandleGetPortfolio(t *testing.T) {
	mock := &mockPortfolioService{result: testResult()}
	srv := newTestServer(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/"+testWallet, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mock.lastOpts.Persist, "plain GET must not persist a snapshot")

	var got service.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, testWallet, got.WalletAddress)
	require.Len(t, got.Portfolio, 1)
	assert.Equal(t, "ETH", got.Portfolio[0].Symbol)
}

func TestHandleGetPortfolioInvalidWallet(t *testing.T) {
	mock := &mockPortfolioService{err: service.ErrInvalidWallet}
	srv := newTestServer(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/garbage", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
}

func TestHandleCreateSnapshot(t *testing.T) {
	result := testResult()
	result.SnapshotID = "snap-1"
	mock := &mockPortfolioService{result: result}
	srv := newTestServer(mock)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/"+testWallet+"/snapshots", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, mock.lastOpts.Persist)
}

func TestHandleListSnapshots(t *testing.T) {
	mock := &mockPortfolioService{snapshots: []models.Snapshot{
		{ID: "snap-1", WalletAddress: testWallet, TotalValue: decimal.NewFromInt(6000)},
	}}
	srv := newTestServer(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/"+testWallet+"/snapshots", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		WalletAddress string            `json:"walletAddress"`
		Snapshots     []models.Snapshot `json:"snapshots"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Snapshots, 1)
	assert.Equal(t, "snap-1", resp.Snapshots[0].ID)
}

func TestHandleGetPerformance(t *testing.T) {
	mock := &mockPortfolioService{performance: analytics.Performance{
		InitialValue: decimal.NewFromInt(4000),
		LatestValue:  decimal.NewFromInt(6000),
		TotalPnL:     decimal.NewFromInt(2000),
	}}
	srv := newTestServer(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/"+testWallet+"/performance", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var perf analytics.Performance
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&perf))
	assert.True(t, perf.LatestValue.Equal(decimal.NewFromInt(6000)))
}

func TestHandleExportPortfolio(t *testing.T) {
	mock := &mockPortfolioService{result: testResult()}
	srv := newTestServer(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/"+testWallet+"/export", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "symbol,chain,amount,current_value,invested,pnl,pnl_pct", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ETH,ethereum,"))
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&mockPortfolioService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
