// Package service orchestrates the portfolio pipeline: holding discovery,
// scam filtering, price resolution, valuation, merging, optional snapshot
// persistence and summary analytics.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wallet-portfolio/internal/adapter"
	"github.com/wallet-portfolio/internal/analytics"
	"github.com/wallet-portfolio/internal/calculator"
	"github.com/wallet-portfolio/internal/config"
	"github.com/wallet-portfolio/internal/filter"
	"github.com/wallet-portfolio/internal/logging"
	"github.com/wallet-portfolio/internal/merge"
	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/pricing"
)

// Stage identifies one step of the assembly pipeline
type Stage string

const (
	StageFetchHoldings Stage = "FETCH_HOLDINGS"
	StageFilter        Stage = "FILTER"
	StageResolvePrices Stage = "RESOLVE_PRICES"
	StageCalculate     Stage = "CALCULATE"
	StageMerge         Stage = "MERGE"
	StagePersist       Stage = "PERSIST"
	StageSummarize     Stage = "SUMMARIZE"
	StageDone          Stage = "DONE"
)

// ErrInvalidWallet is the only hard failure of the pipeline. Every other
// problem degrades to an explicit partial or empty result.
var ErrInvalidWallet = errors.New("invalid wallet address")

// defaultFetchTimeout bounds a chain fetch when no per-chain timeout is set
const defaultFetchTimeout = 15 * time.Second

// StageResult records the outcome of one pipeline stage
type StageResult struct {
	Stage   Stage  `json:"stage"`
	In      int    `json:"in"`
	Out     int    `json:"out"`
	Dropped int    `json:"dropped,omitempty"`
	Note    string `json:"note,omitempty"`
}

// Result is the outcome of one portfolio assembly run
type Result struct {
	WalletAddress string                  `json:"walletAddress"`
	Portfolio     []models.MergedPosition `json:"portfolio"`
	TotalValue    decimal.Decimal         `json:"totalValue"`
	TotalPnL      decimal.Decimal         `json:"totalPnl"`
	Summary       analytics.Summary       `json:"summary"`
	Performance   analytics.Performance   `json:"performance"`
	SnapshotID    string                  `json:"snapshotId,omitempty"`
	Stages        []StageResult           `json:"stages"`
	GeneratedAt   time.Time               `json:"generatedAt"`
}

// AssembleOptions controls optional pipeline behavior for one run
type AssembleOptions struct {
	// Persist writes the merged portfolio as a snapshot. Snapshots are
	// created only on explicit request, never implicitly.
	Persist bool
}

// SnapshotStore persists and reads back portfolio snapshots
type SnapshotStore interface {
	Persist(ctx context.Context, walletAddress string, totalValue, totalPnL string, positions []models.MergedPosition) (string, error)
	ListByWallet(ctx context.Context, walletAddress string) ([]models.Snapshot, error)
}

// PortfolioService runs the assembly pipeline. It is stateless across runs;
// all per-run state lives in locals and the per-run price cache.
type PortfolioService struct {
	sources   []adapter.HoldingSource
	filter    *filter.ScamFilter
	resolver  *pricing.Resolver
	calc      *calculator.Calculator
	snapshots SnapshotStore
	chains    config.ChainsConfig
	logger    *logging.Logger
}

// NewPortfolioService creates a new portfolio service. snapshots may be nil
// when persistence is not configured; Persist requests then degrade with a
// stage note.
func NewPortfolioService(
	sources []adapter.HoldingSource,
	scamFilter *filter.ScamFilter,
	resolver *pricing.Resolver,
	calc *calculator.Calculator,
	snapshots SnapshotStore,
	chains config.ChainsConfig,
) *PortfolioService {
	return &PortfolioService{
		sources:   sources,
		filter:    scamFilter,
		resolver:  resolver,
		calc:      calc,
		snapshots: snapshots,
		chains:    chains,
		logger:    logging.Default().WithField("component", "portfolio_service"),
	}
}

// Assemble builds the wallet's portfolio. An invalid address is the only
// error; failed chains, unpriced assets and empty wallets all produce an
// explicit (possibly empty) Result.
func (s *PortfolioService) Assemble(ctx context.Context, walletAddress string, opts AssembleOptions) (*Result, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, ErrInvalidWallet
	}

	result := &Result{
		WalletAddress: walletAddress,
		Portfolio:     []models.MergedPosition{},
		TotalValue:    decimal.Zero,
		TotalPnL:      decimal.Zero,
		GeneratedAt:   time.Now().UTC(),
	}
	log := s.logger.WithField("wallet", walletAddress)

	holdings := s.fetchHoldings(ctx, walletAddress, log)
	result.Stages = append(result.Stages, StageResult{
		Stage: StageFetchHoldings,
		Out:   len(holdings),
	})
	if len(holdings) == 0 {
		return s.finish(ctx, result, log)
	}

	kept := s.filterHoldings(holdings, log)
	result.Stages = append(result.Stages, StageResult{
		Stage:   StageFilter,
		In:      len(holdings),
		Out:     len(kept),
		Dropped: len(holdings) - len(kept),
	})
	if len(kept) == 0 {
		return s.finish(ctx, result, log)
	}

	book := s.resolver.Resolve(ctx, kept, pricing.NewRunCache())
	result.Stages = append(result.Stages, StageResult{
		Stage: StageResolvePrices,
		In:    len(kept),
		Out:   len(kept),
	})

	positions := make([]models.Position, 0, len(kept))
	for _, h := range kept {
		if p, ok := s.calc.Calculate(h, book.QuoteFor(h)); ok {
			positions = append(positions, p)
		}
	}
	result.Stages = append(result.Stages, StageResult{
		Stage:   StageCalculate,
		In:      len(kept),
		Out:     len(positions),
		Dropped: len(kept) - len(positions),
	})
	if len(positions) == 0 {
		return s.finish(ctx, result, log)
	}

	result.Portfolio = merge.Merge(positions)
	analytics.AnnotateProvenance(result.Portfolio)
	for _, p := range result.Portfolio {
		result.TotalValue = result.TotalValue.Add(p.CurrentValue)
		result.TotalPnL = result.TotalPnL.Add(p.PnL)
	}
	result.Stages = append(result.Stages, StageResult{
		Stage: StageMerge,
		In:    len(positions),
		Out:   len(result.Portfolio),
	})

	if opts.Persist {
		result.Stages = append(result.Stages, s.persist(ctx, result, log))
	}

	return s.finish(ctx, result, log)
}

// fetchHoldings queries every configured chain concurrently. A failed chain
// contributes zero holdings; the run continues with the rest.
func (s *PortfolioService) fetchHoldings(ctx context.Context, walletAddress string, log *logging.Logger) []models.Holding {
	results := make([][]models.Holding, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.fetchTimeout(src))
			defer cancel()

			holdings, err := src.FetchHoldings(fetchCtx, walletAddress)
			if err != nil {
				log.WithError(err).WithField("chain", string(src.ChainID())).
					Warn("chain fetch failed, contributing zero holdings")
				return nil
			}
			results[i] = holdings
			return nil
		})
	}
	_ = g.Wait()

	var all []models.Holding
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func (s *PortfolioService) fetchTimeout(src adapter.HoldingSource) time.Duration {
	if cfg, ok := s.chains.Chains[string(src.ChainID())]; ok && cfg.FetchTimeout > 0 {
		return cfg.FetchTimeout
	}
	return defaultFetchTimeout
}

func (s *PortfolioService) filterHoldings(holdings []models.Holding, log *logging.Logger) []models.Holding {
	kept := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		suppressed, reason := s.filter.Classify(h)
		if suppressed {
			log.WithFields(map[string]interface{}{
				"symbol": h.Symbol,
				"chain":  string(h.Chain),
				"reason": reason,
			}).Debug("holding suppressed")
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

func (s *PortfolioService) persist(ctx context.Context, result *Result, log *logging.Logger) StageResult {
	stage := StageResult{Stage: StagePersist, In: len(result.Portfolio)}

	if s.snapshots == nil {
		stage.Note = "snapshot store not configured"
		log.Warn("persist requested without a snapshot store")
		return stage
	}

	id, err := s.snapshots.Persist(ctx, result.WalletAddress,
		result.TotalValue.String(), result.TotalPnL.String(), result.Portfolio)
	if err != nil {
		stage.Note = "snapshot write failed"
		log.WithError(err).Error("failed to persist snapshot")
		return stage
	}

	result.SnapshotID = id
	stage.Out = len(result.Portfolio)
	return stage
}

// finish runs the terminal stages shared by every pipeline path, including
// the empty short-circuits: summary analytics and snapshot-based performance.
func (s *PortfolioService) finish(ctx context.Context, result *Result, log *logging.Logger) (*Result, error) {
	result.Summary = analytics.Summarize(result.Portfolio)

	if s.snapshots != nil {
		history, err := s.snapshots.ListByWallet(ctx, result.WalletAddress)
		if err != nil {
			log.WithError(err).Warn("failed to load snapshot history")
		} else {
			result.Performance = analytics.Analyze(history)
		}
	}

	result.Stages = append(result.Stages,
		StageResult{Stage: StageSummarize, In: len(result.Portfolio), Out: len(result.Portfolio)},
		StageResult{Stage: StageDone},
	)
	return result, nil
}

// History returns the wallet's snapshots in ascending time order
func (s *PortfolioService) History(ctx context.Context, walletAddress string) ([]models.Snapshot, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, ErrInvalidWallet
	}
	if s.snapshots == nil {
		return []models.Snapshot{}, nil
	}
	return s.snapshots.ListByWallet(ctx, walletAddress)
}

// Performance computes snapshot-based performance metrics for the wallet
func (s *PortfolioService) Performance(ctx context.Context, walletAddress string) (analytics.Performance, error) {
	history, err := s.History(ctx, walletAddress)
	if err != nil {
		return analytics.Performance{}, err
	}
	return analytics.Analyze(history), nil
}
