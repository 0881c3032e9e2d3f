package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/wallet-portfolio/internal/pricing"
)

const quoteArchiveSchema = `
CREATE TABLE IF NOT EXISTS price_quotes (
    asset_key  String,
    chain      String,
    price      Decimal(38, 18),
    source     String,
    fetched_at DateTime64(3)
) ENGINE = MergeTree()
ORDER BY (asset_key, fetched_at)
TTL toDateTime(fetched_at) + INTERVAL 90 DAY
`

// QuoteArchive stores resolved price quotes in ClickHouse for offline
// staleness and source-coverage analysis. It implements pricing.QuoteArchiver.
type QuoteArchive struct {
	db *ClickHouseDB
}

// NewQuoteArchive creates a quote archive and ensures its table exists
func NewQuoteArchive(db *ClickHouseDB) (*QuoteArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Exec(ctx, quoteArchiveSchema); err != nil {
		return nil, fmt.Errorf("failed to create price_quotes table: %w", err)
	}
	return &QuoteArchive{db: db}, nil
}

// Archive appends the resolved quotes of one pipeline run
func (a *QuoteArchive) Archive(ctx context.Context, records []pricing.ArchiveRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := a.db.conn.PrepareBatch(ctx, `
		INSERT INTO price_quotes (asset_key, chain, price, source, fetched_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range records {
		err := batch.Append(
			r.AssetKey,
			string(r.Chain),
			r.Price.String(),
			string(r.Source),
			r.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append quote: %w", err)
		}
	}

	return batch.Send()
}
