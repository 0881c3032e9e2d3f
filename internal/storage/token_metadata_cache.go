package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-portfolio/internal/adapter"
	"github.com/wallet-portfolio/internal/types"
)

// TokenMetadataCache caches ERC-20 symbol/decimals lookups in Redis so repeat
// wallet scans avoid on-chain metadata calls. Entries are TTL-bounded: token
// metadata is effectively immutable, but expiry lets a bad entry age out.
type TokenMetadataCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewTokenMetadataCache creates a metadata cache with the given TTL
func NewTokenMetadataCache(redis *RedisCache, ttl time.Duration) *TokenMetadataCache {
	return &TokenMetadataCache{redis: redis, ttl: ttl}
}

// key format: token_meta:<chain>:<contract>
func (c *TokenMetadataCache) key(chain types.ChainID, contract string) string {
	return fmt.Sprintf("token_meta:%s:%s", strings.ToLower(string(chain)), strings.ToLower(contract))
}

// Get returns cached metadata for a contract. A miss is (zero, false, nil).
func (c *TokenMetadataCache) Get(ctx context.Context, chain types.ChainID, contract string) (adapter.TokenMetadata, bool, error) {
	data, err := c.redis.Client().Get(ctx, c.key(chain, contract)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return adapter.TokenMetadata{}, false, nil
		}
		return adapter.TokenMetadata{}, false, fmt.Errorf("failed to read token metadata: %w", err)
	}

	var meta adapter.TokenMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return adapter.TokenMetadata{}, false, fmt.Errorf("failed to unmarshal token metadata: %w", err)
	}
	return meta, true, nil
}

// Set stores metadata for a contract with the configured TTL
func (c *TokenMetadataCache) Set(ctx context.Context, chain types.ChainID, contract string, meta adapter.TokenMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal token metadata: %w", err)
	}

	if err := c.redis.Client().Set(ctx, c.key(chain, contract), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write token metadata: %w", err)
	}
	return nil
}
