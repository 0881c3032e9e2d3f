package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/types"
)

// SnapshotRepository persists portfolio snapshots. Snapshots are append-only:
// a snapshot and all of its positions commit in one transaction and are never
// updated afterwards.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Persist stores a new snapshot with its positions atomically and returns the
// generated snapshot id.
func (r *SnapshotRepository) Persist(ctx context.Context, walletAddress string, totalValue, totalPnL string, positions []models.MergedPosition) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	id := uuid.New().String()
	takenAt := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO portfolio_snapshots (id, wallet_address, taken_at, total_value, total_pnl)
		VALUES ($1, $2, $3, $4, $5)
	`, id, walletAddress, takenAt, totalValue, totalPnL)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, p := range positions {
		_, err = tx.Exec(ctx, `
			INSERT INTO portfolio_positions (
				snapshot_id, symbol, chain, contract_address, is_token,
				amount, invested, current_value, pnl, pnl_pct, price_available, note
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			id, p.Symbol, string(p.Chain), p.ContractAddress, p.IsToken,
			p.Amount.String(), p.Invested.String(), p.CurrentValue.String(),
			p.PnL.String(), p.PnLPct.String(), p.PriceAvailable, p.Note,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert snapshot position: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return id, nil
}

// ListByWallet returns all snapshots for a wallet with their positions,
// ascending by time.
func (r *SnapshotRepository) ListByWallet(ctx context.Context, walletAddress string) ([]models.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, wallet_address, taken_at, total_value, total_pnl
		FROM portfolio_snapshots
		WHERE wallet_address = $1
		ORDER BY taken_at ASC
	`, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(&snap.ID, &snap.WalletAddress, &snap.TakenAt, &snap.TotalValue, &snap.TotalPnL); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	for i := range snapshots {
		positions, err := r.loadPositions(ctx, snapshots[i].ID)
		if err != nil {
			return nil, err
		}
		snapshots[i].Positions = positions
	}

	return snapshots, nil
}

func (r *SnapshotRepository) loadPositions(ctx context.Context, snapshotID string) ([]models.MergedPosition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symbol, chain, contract_address, is_token,
		       amount, invested, current_value, pnl, pnl_pct, price_available, note
		FROM portfolio_positions
		WHERE snapshot_id = $1
		ORDER BY current_value DESC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot positions: %w", err)
	}
	defer rows.Close()

	var positions []models.MergedPosition
	for rows.Next() {
		var p models.MergedPosition
		var chain string
		if err := rows.Scan(
			&p.Symbol, &chain, &p.ContractAddress, &p.IsToken,
			&p.Amount, &p.Invested, &p.CurrentValue, &p.PnL, &p.PnLPct,
			&p.PriceAvailable, &p.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot position: %w", err)
		}
		p.Chain = types.ChainID(chain)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
