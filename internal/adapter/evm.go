package adapter

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/wallet-portfolio/internal/chains"
	"github.com/wallet-portfolio/internal/logging"
	"github.com/wallet-portfolio/internal/models"
	walletTypes "github.com/wallet-portfolio/internal/types"
)

// nativeDecimals is the wei exponent shared by all supported EVM chains
const nativeDecimals = 18

// DefaultDiscoveryLookback is how many blocks back the Transfer-log scan
// reaches when discovering ERC-20 contracts the wallet has received.
const DefaultDiscoveryLookback = 3_000_000

// transferTopic is the ERC-20 Transfer event signature hash
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// WatchedToken is one ERC-20 contract always scanned on a chain, regardless
// of what log discovery finds
type WatchedToken struct {
	Contract string
}

// ethBackend is the subset of the RPC client the adapter needs
type ethBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

// EVMAdapter discovers native and ERC-20 balances on one EVM chain through a
// JSON-RPC endpoint. Token contracts come from the configured watchlist plus
// a Transfer-log scan over a bounded lookback; metadata (symbol, decimals) is
// resolved through the cache first and on-chain on a miss.
type EVMAdapter struct {
	chain    chains.Chain
	client   ethBackend
	tokens   []WatchedToken
	metadata MetadataCache
	lookback uint64
	abi      abi.ABI
}

// NewEVMAdapter dials the chain's RPC endpoint and prepares the adapter.
// lookback bounds the discovery log scan; zero uses DefaultDiscoveryLookback.
func NewEVMAdapter(chain chains.Chain, rpcURL string, tokens []WatchedToken, metadata MetadataCache, lookback uint64) (*EVMAdapter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, &SourceError{Chain: chain.ID, Op: "Dial", Err: err}
	}
	return newEVMAdapter(chain, client, tokens, metadata, lookback)
}

func newEVMAdapter(chain chains.Chain, client ethBackend, tokens []WatchedToken, metadata MetadataCache, lookback uint64) (*EVMAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, &SourceError{Chain: chain.ID, Op: "ParseABI", Err: err}
	}
	if lookback == 0 {
		lookback = DefaultDiscoveryLookback
	}

	return &EVMAdapter{
		chain:    chain,
		client:   client,
		tokens:   tokens,
		metadata: metadata,
		lookback: lookback,
		abi:      parsed,
	}, nil
}

// ChainID returns the chain identifier
func (a *EVMAdapter) ChainID() walletTypes.ChainID {
	return a.chain.ID
}

// Close releases the underlying RPC connection
func (a *EVMAdapter) Close() {
	a.client.Close()
}

// FetchHoldings returns the wallet's native balance plus non-zero balances of
// every known token contract: the watchlist seed unioned with contracts found
// by the Transfer-log scan. Discovery failures and individual token failures
// are logged and skipped; only a failing native balance call fails the whole
// chain.
func (a *EVMAdapter) FetchHoldings(ctx context.Context, walletAddress string) ([]models.Holding, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, &SourceError{Chain: a.chain.ID, Op: "FetchHoldings", Err: ErrInvalidAddress}
	}
	logger := logging.FromContext(ctx).WithField("chain", string(a.chain.ID))
	owner := common.HexToAddress(walletAddress)

	wei, err := a.client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, &SourceError{Chain: a.chain.ID, Op: "BalanceAt", Err: err}
	}

	holdings := []models.Holding{
		models.NewNativeHolding(a.chain.ID, a.chain.NativeSymbol, decimal.NewFromBigInt(wei, -nativeDecimals)),
	}

	for _, contract := range a.contractSet(ctx, owner) {
		holding, ok, err := a.fetchTokenBalance(ctx, owner, contract)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"contract": contract,
				"error":    err.Error(),
			}).Warn("token balance fetch failed, skipping contract")
			continue
		}
		if ok {
			holdings = append(holdings, holding)
		}
	}

	return holdings, nil
}

// contractSet unions the watchlist with discovered contracts, lowercased and
// deduplicated, in sorted order so scans are deterministic. Discovery errors
// degrade to the watchlist alone.
func (a *EVMAdapter) contractSet(ctx context.Context, owner common.Address) []string {
	seen := make(map[string]struct{}, len(a.tokens))
	for _, token := range a.tokens {
		seen[strings.ToLower(token.Contract)] = struct{}{}
	}

	discovered, err := a.discoverContracts(ctx, owner)
	if err != nil {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"chain": string(a.chain.ID),
			"error": err.Error(),
		}).Warn("token discovery failed, scanning watchlist only")
	}
	for _, contract := range discovered {
		seen[contract] = struct{}{}
	}

	contracts := make([]string, 0, len(seen))
	for contract := range seen {
		contracts = append(contracts, contract)
	}
	sort.Strings(contracts)
	return contracts
}

// discoverContracts finds ERC-20 contracts that have emitted a Transfer to
// the wallet within the lookback window. Emitting addresses of matching logs
// are the token contracts.
func (a *EVMAdapter) discoverContracts(ctx context.Context, owner common.Address) ([]string, error) {
	latest, err := a.client.BlockNumber(ctx)
	if err != nil {
		return nil, &SourceError{Chain: a.chain.ID, Op: "BlockNumber", Err: err}
	}

	fromBlock := uint64(0)
	if latest > a.lookback {
		fromBlock = latest - a.lookback
	}

	logs, err := a.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Topics: [][]common.Hash{
			{transferTopic},
			nil, // any sender
			{common.BytesToHash(owner.Bytes())},
		},
	})
	if err != nil {
		return nil, &SourceError{Chain: a.chain.ID, Op: "FilterLogs", Err: err}
	}

	seen := make(map[string]struct{}, len(logs))
	contracts := make([]string, 0, len(logs))
	for _, entry := range logs {
		contract := strings.ToLower(entry.Address.Hex())
		if _, ok := seen[contract]; ok {
			continue
		}
		seen[contract] = struct{}{}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}

// fetchTokenBalance returns the holding for one contract. ok is false for
// zero balances, which never become holdings.
func (a *EVMAdapter) fetchTokenBalance(ctx context.Context, owner common.Address, contract string) (models.Holding, bool, error) {
	tokenAddr := common.HexToAddress(contract)

	raw, err := a.call(ctx, tokenAddr, "balanceOf", owner)
	if err != nil {
		return models.Holding{}, false, err
	}
	balance := new(big.Int).SetBytes(raw)
	if balance.Sign() == 0 {
		return models.Holding{}, false, nil
	}

	meta, err := a.resolveMetadata(ctx, contract, tokenAddr)
	if err != nil {
		return models.Holding{}, false, err
	}

	amount := decimal.NewFromBigInt(balance, -int32(meta.Decimals))
	return models.NewTokenHolding(a.chain.ID, meta.Symbol, contract, amount, meta.Decimals), true, nil
}

func (a *EVMAdapter) resolveMetadata(ctx context.Context, contract string, tokenAddr common.Address) (TokenMetadata, error) {
	if a.metadata != nil {
		meta, ok, err := a.metadata.Get(ctx, a.chain.ID, contract)
		if err == nil && ok {
			return meta, nil
		}
	}

	symRaw, err := a.call(ctx, tokenAddr, "symbol")
	if err != nil {
		return TokenMetadata{}, err
	}
	var symbol string
	if err := a.abi.UnpackIntoInterface(&symbol, "symbol", symRaw); err != nil {
		return TokenMetadata{}, err
	}

	decRaw, err := a.call(ctx, tokenAddr, "decimals")
	if err != nil {
		return TokenMetadata{}, err
	}
	var decimals uint8
	if err := a.abi.UnpackIntoInterface(&decimals, "decimals", decRaw); err != nil {
		return TokenMetadata{}, err
	}

	meta := TokenMetadata{Symbol: symbol, Decimals: int(decimals)}
	if a.metadata != nil {
		if err := a.metadata.Set(ctx, a.chain.ID, contract, meta); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("token metadata cache write failed")
		}
	}
	return meta, nil
}

func (a *EVMAdapter) call(ctx context.Context, contract common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := a.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	return a.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
}
