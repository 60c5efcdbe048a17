// Package tools exposes the engine as named operations that take JSON
// arguments and return human readable reports.
package tools

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ClipFinance/dex-engine/chains/evm/safety"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Operation names.
const (
	OpWalletCreate = "wallet-create"
	OpBalance      = "balance"
	OpQuote        = "quote"
	OpSwap         = "swap"
	OpPortfolio    = "portfolio"
	OpTokenInfo    = "token-info"
	OpSafetyCheck  = "safety-check"
	OpTransfer     = "transfer"
	OpHistory      = "history"
)

// DefaultWalletID is the wallet used when a call names none.
const DefaultWalletID = "default"

// Tool describes one operation.
type Tool struct {
	Name             string
	Description      string
	RequiresApproval bool
}

var catalog = []Tool{
	{Name: OpWalletCreate, Description: "Create a new wallet and store its key in the vault"},
	{Name: OpBalance, Description: "Show the ETH balance and one token or all known token balances"},
	{Name: OpQuote, Description: "Quote an exact-input Uniswap V3 swap"},
	{Name: OpSwap, Description: "Execute an exact-input Uniswap V3 swap", RequiresApproval: true},
	{Name: OpPortfolio, Description: "Show all non-zero balances of the wallet"},
	{Name: OpTokenInfo, Description: "Read token metadata and test swap viability"},
	{Name: OpSafetyCheck, Description: "Score a token for honeypot and ownership risks"},
	{Name: OpTransfer, Description: "Send ETH or an ERC-20 token", RequiresApproval: true},
	{Name: OpHistory, Description: "List recent ERC-20 transfers of the wallet"},
}

// Tools returns the operation catalog.
func Tools() []Tool {
	return append([]Tool{}, catalog...)
}

// Lookup returns the catalog entry of name.
func Lookup(name string) (Tool, bool) {
	for _, tool := range catalog {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

// commonArgs are accepted by every operation.
type commonArgs struct {
	ChainID uint64 `json:"chain_id,omitempty"`
	Wallet  string `json:"wallet,omitempty"`
}

// Toolbox runs operations against the chains of a registry and the wallets
// of a store.
type Toolbox struct {
	chains   types.ChainRegistry
	wallets  types.WalletStore
	logger   *logrus.Logger
	chainID  uint64
	walletID string

	analyzerOptions []safety.Option
	analyzersMutex  sync.Mutex
	analyzers       map[uint64]*safety.Analyzer
}

// Option configures a Toolbox.
type Option func(*Toolbox)

// WithWalletID sets the wallet used when a call names none.
func WithWalletID(id string) Option {
	return func(t *Toolbox) { t.walletID = id }
}

// WithAnalyzerOptions configures the safety analyzers built per chain.
func WithAnalyzerOptions(opts ...safety.Option) Option {
	return func(t *Toolbox) { t.analyzerOptions = opts }
}

// New creates a toolbox.
//
// Parameters:
// - chains: the chain registry.
// - wallets: the wallet store; read-only operations work without one.
// - chainID: the chain used when a call names none.
// - logger: the logger for logging events.
// - opts: optional settings.
//
// Returns:
// - *Toolbox: the toolbox.
func New(chains types.ChainRegistry, wallets types.WalletStore, chainID uint64, logger *logrus.Logger, opts ...Option) *Toolbox {
	t := &Toolbox{
		chains:    chains,
		wallets:   wallets,
		logger:    logger,
		chainID:   chainID,
		walletID:  DefaultWalletID,
		analyzers: map[uint64]*safety.Analyzer{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute runs the operation name with JSON args. Operations that move funds
// are refused with ErrApprovalRequired unless approved is set.
//
// Parameters:
// - ctx: the context for managing the request.
// - name: the operation name.
// - args: the JSON object of arguments; empty means no arguments.
// - approved: whether the caller confirmed a fund-moving operation.
//
// Returns:
// - string: the report.
// - error: an error if the arguments are invalid or the operation fails.
func (t *Toolbox) Execute(ctx context.Context, name string, args json.RawMessage, approved bool) (string, error) {
	tool, ok := Lookup(name)
	if !ok {
		return "", errors.Errorf("unknown tool %q", name)
	}
	if tool.RequiresApproval && !approved {
		return "", errors.Wrapf(dexerrors.ErrApprovalRequired, "%s", name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	t.logger.WithFields(logrus.Fields{
		"tool":     name,
		"approved": approved,
	}).Debug("Executing tool")

	var (
		report string
		err    error
	)
	switch name {
	case OpWalletCreate:
		report, err = t.walletCreate(ctx, args)
	case OpBalance:
		report, err = t.balance(ctx, args)
	case OpQuote:
		report, err = t.quote(ctx, args)
	case OpSwap:
		report, err = t.swap(ctx, args)
	case OpPortfolio:
		report, err = t.portfolio(ctx, args)
	case OpTokenInfo:
		report, err = t.tokenInfo(ctx, args)
	case OpSafetyCheck:
		report, err = t.safetyCheck(ctx, args)
	case OpTransfer:
		report, err = t.transfer(ctx, args)
	case OpHistory:
		report, err = t.history(ctx, args)
	}
	if err != nil {
		t.logger.WithField("tool", name).WithError(err).Warn("Tool failed")
		return "", err
	}
	return report, nil
}

func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return dexerrors.Encoding("arguments", "", err.Error())
	}
	return nil
}

// chain returns the chain named by args, or the default chain.
func (t *Toolbox) chain(args commonArgs) (types.Chain, error) {
	id := args.ChainID
	if id == 0 {
		id = t.chainID
	}
	chain := t.chains.Get(id)
	if chain == nil {
		return nil, errors.Wrapf(dexerrors.ErrChainNotFound, "chain %d", id)
	}
	return chain, nil
}

func (t *Toolbox) wallet(args commonArgs) string {
	if args.Wallet != "" {
		return args.Wallet
	}
	return t.walletID
}

// walletAddress returns the address of the wallet named by args.
func (t *Toolbox) walletAddress(ctx context.Context, args commonArgs) (string, error) {
	if t.wallets == nil {
		return "", errors.Wrap(dexerrors.ErrWalletNotFound, "no wallet store configured")
	}
	address, err := t.wallets.WalletAddress(ctx, t.wallet(args))
	if err != nil {
		return "", errors.Wrapf(err, "wallet %q (create one with %s)", t.wallet(args), OpWalletCreate)
	}
	return address, nil
}

// analyzer returns the cached safety analyzer of chain.
func (t *Toolbox) analyzer(chain types.Chain) *safety.Analyzer {
	t.analyzersMutex.Lock()
	defer t.analyzersMutex.Unlock()

	id := chain.Config().ChainID
	if a, ok := t.analyzers[id]; ok {
		return a
	}
	a := safety.NewAnalyzer(chain, t.logger, t.analyzerOptions...)
	t.analyzers[id] = a
	return a
}
