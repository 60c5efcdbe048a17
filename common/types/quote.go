package types

import "math/big"

const (
	// DefaultSlippageBps is applied when a request leaves slippage unset.
	DefaultSlippageBps uint32 = 50
	// MaxSlippageBps is the largest accepted slippage tolerance.
	MaxSlippageBps uint32 = 500
	// DefaultFeeTier is the 0.3% Uniswap V3 pool tier.
	DefaultFeeTier uint32 = 3000
)

// QuoteRequest describes an exact-input swap quote.
//
// Fields:
// - TokenIn: symbol or address of the input token; "ETH" means native ETH.
// - TokenOut: symbol or address of the output token.
// - Amount: the human readable input amount, e.g. "1.5".
// - SlippageBps: the slippage tolerance in basis points; nil uses DefaultSlippageBps.
// - FeeTier: the pool fee tier; zero uses the chain default.
// - TokenInDecimals, TokenOutDecimals: decimals of unlisted tokens; nil reads them on chain.
type QuoteRequest struct {
	TokenIn          string  `json:"token_in"`
	TokenOut         string  `json:"token_out"`
	Amount           string  `json:"amount"`
	SlippageBps      *uint32 `json:"slippage_bps,omitempty"`
	FeeTier          uint32  `json:"fee_tier,omitempty"`
	TokenInDecimals  *uint8  `json:"token_in_decimals,omitempty"`
	TokenOutDecimals *uint8  `json:"token_out_decimals,omitempty"`
}

// Slippage returns the effective slippage in basis points.
func (r *QuoteRequest) Slippage() uint32 {
	if r.SlippageBps == nil {
		return DefaultSlippageBps
	}
	return *r.SlippageBps
}

// Route is the pool path a quote was found on.
//
// Fields:
// - Tokens: the token addresses along the route, input first.
// - Fees: the fee tier of each hop.
// - MultiHop: true when the route goes through WETH.
// - Path: the packed Uniswap path, set for multi-hop routes only.
type Route struct {
	Tokens   []string
	Fees     []uint32
	MultiHop bool
	Path     []byte
}

// Quote is the result of a successful quote.
type Quote struct {
	TokenIn      Token
	TokenOut     Token
	NativeIn     bool
	NativeOut    bool
	AmountIn     *big.Int
	AmountOut    *big.Int
	MinAmountOut *big.Int
	SlippageBps  uint32
	FeeTier      uint32
	GasEstimate  uint64
	Route        Route
}

// SwapRequest is a quote request executed from a vault wallet.
type SwapRequest struct {
	WalletID string `json:"wallet_id"`
	QuoteRequest
}

// SwapResult is the outcome of a swap. A pending swap carries the hash and
// no receipt data.
type SwapResult struct {
	Status         TransactionStatus
	TxHash         string
	ApprovalTxHash string
	Quote          *Quote
	BlockNumber    uint64
	GasUsed        uint64
	Explorer       string
}
