package types

import (
	"context"
	"math/big"
	"time"
)

// Contracts holds the Uniswap V3 deployment used for quoting and swapping.
//
// Fields:
// - QuoterV2: the QuoterV2 contract address.
// - SwapRouter02: the SwapRouter02 contract address.
// - WETH: the wrapped native token, used as the multi-hop intermediate.
type Contracts struct {
	QuoterV2     string
	SwapRouter02 string
	WETH         string
}

// ChainConfig holds the configuration for a specific chain implementation.
//
// Fields:
// - Name: the human readable network name.
// - ChainID: the unique identifier for the chain.
// - RpcUrls: the RPC endpoints, primary first; the monitor rotates through them.
// - ExplorerURL: the block explorer base URL, without trailing slash.
// - NativeSymbol: the symbol of the native gas token.
// - Contracts: the swap deployment; nil when swaps are not supported.
// - Tokens: the static token table.
// - DefaultFeeTier: the pool fee tier used when a request does not name one.
// - LogChunkSize: the block window for eth_getLogs scans.
// - PriorityFee: the fixed EIP-1559 priority fee in wei.
// - DynamicPriorityFee: query eth_maxPriorityFeePerGas instead of using PriorityFee.
// - SafetyGuard: probe tokens outside the table for honeypots before buying them.
type ChainConfig struct {
	Name               string
	ChainID            uint64
	RpcUrls            []string
	ExplorerURL        string
	NativeSymbol       string
	Contracts          *Contracts
	Tokens             []Token
	DefaultFeeTier     uint32
	LogChunkSize       uint64
	PriorityFee        *big.Int
	DynamicPriorityFee bool
	SafetyGuard        bool
}

// TxURL returns the explorer link of a transaction, or an empty string when
// the chain has no explorer configured.
func (c *ChainConfig) TxURL(txHash string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/tx/" + txHash
}

// AddressURL returns the explorer link of an account or contract.
func (c *ChainConfig) AddressURL(address string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/address/" + address
}

// SupportsSwaps reports whether a Uniswap deployment is configured.
func (c *ChainConfig) SupportsSwaps() bool {
	return c.Contracts != nil && c.Contracts.QuoterV2 != "" && c.Contracts.SwapRouter02 != "" && c.Contracts.WETH != ""
}

// GasEstimator provides gas estimation functionality.
type GasEstimator interface {
	// EstimateGas estimates the gas required for a transaction.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - from: the sender address of the transaction.
	// - to: the recipient address of the transaction.
	// - value: the amount of Ether to send with the transaction.
	// - data: the input data for the transaction.
	//
	// Returns:
	// - uint64: the estimated gas amount.
	// - error: an error if the gas estimation fails.
	EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error)
}

// TransactionSender provides transaction sending functionality.
type TransactionSender interface {
	// Transfer sends native ETH or an ERC-20 token from a vault wallet.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - req: the transfer request.
	//
	// Returns:
	// - *TransferResult: the outcome, including pending transfers.
	// - error: an error if the transfer could not be sent or reverted.
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
}

// TransactionWatcher provides transaction confirmation functionality.
type TransactionWatcher interface {
	// WaitTransactionConfirmation polls for the receipt of a transaction.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - txHash: the hash of the transaction to wait for.
	// - timeout: how long to poll before reporting the transaction as pending.
	//
	// Returns:
	// - TransactionStatus: confirmed, reverted or pending.
	// - *Receipt: the receipt, nil while pending.
	// - error: an error if the receipt could not be queried.
	WaitTransactionConfirmation(ctx context.Context, txHash string, timeout time.Duration) (TransactionStatus, *Receipt, error)
}

// Quoter provides read-only Uniswap V3 quotes.
type Quoter interface {
	// Quote prices an exact-input swap, falling back to a route through
	// WETH when no direct pool answers.
	Quote(ctx context.Context, req *QuoteRequest) (*Quote, error)
	// QuoteExactInputSingle quotes raw amounts against a single pool.
	QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int, fee uint32) (*big.Int, error)
}

// Swapper executes swaps from vault wallets.
type Swapper interface {
	// Swap re-quotes, approves the router when needed, sends the swap and
	// polls for its receipt.
	Swap(ctx context.Context, req *SwapRequest) (*SwapResult, error)
}

// TokenResolver resolves user input to registry tokens.
type TokenResolver interface {
	// ResolveToken resolves a symbol or address against the token registry,
	// reading unlisted tokens on chain.
	ResolveToken(ctx context.Context, symbolOrAddress string) (Token, error)
}

// BalanceProvider provides balance queries.
type BalanceProvider interface {
	// GetTokenBalance gets token balance for the given address. An empty
	// token address or the native placeholder returns the ETH balance.
	GetTokenBalance(ctx context.Context, address string, tokenAddress string) (*big.Int, error)
	// GetPortfolio returns the native balance and every non-zero token balance.
	GetPortfolio(ctx context.Context, address string, extraTokens []string) (*Portfolio, error)
}

// TokenInspector provides read-only token metadata and history.
type TokenInspector interface {
	TokenInfo(ctx context.Context, token string) (*TokenInfo, error)
	TransferHistory(ctx context.Context, address, token string, blocks uint64) ([]TransferEvent, error)
}

// ContractReader is the read-only surface used by token discovery and the
// safety analyzer.
type ContractReader interface {
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)
	GetCode(ctx context.Context, address string) ([]byte, error)
}

// Chain combines all chain-specific functionality.
type Chain interface {
	GasEstimator
	TransactionSender
	TransactionWatcher
	Quoter
	Swapper
	BalanceProvider
	TokenInspector
	ContractReader
	TokenResolver

	// Config returns the chain configuration.
	Config() *ChainConfig
	// Close releases the RPC connection and stops the connection monitor.
	Close()
}

// ChainRegistry manages multiple chains.
type ChainRegistry interface {
	// Add adds a new chain to the registry.
	//
	// Parameters:
	// - ctx: the context for managing the chain creation.
	// - config: the configuration for the chain to add.
	//
	// Returns:
	// - error: an error if adding the chain fails.
	Add(ctx context.Context, config *ChainConfig) error

	// Get retrieves a chain from the registry by its chain ID.
	//
	// Parameters:
	// - chainID: the unique identifier for the chain to retrieve.
	//
	// Returns:
	// - Chain: the retrieved chain instance, nil if not registered.
	Get(chainID uint64) Chain

	// Remove removes a chain from the registry by its chain ID.
	//
	// Parameters:
	// - chainID: the unique identifier for the chain to remove.
	Remove(chainID uint64)

	// List returns the registered chain IDs in ascending order.
	List() []uint64
}
