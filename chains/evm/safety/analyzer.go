package safety

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a safety report is served from the cache.
const DefaultTTL = 5 * time.Minute

// Chain is the read-only chain surface the analyzer needs.
type Chain interface {
	Config() *types.ChainConfig
	QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut string, amountIn *big.Int, fee uint32) (*big.Int, error)
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)
	GetCode(ctx context.Context, address string) ([]byte, error)
}

// Analyzer runs honeypot probes and token safety checks against one chain.
type Analyzer struct {
	chain  Chain
	logger *logrus.Logger
	ttl    time.Duration
	now    func() time.Time

	cacheMutex sync.Mutex
	cache      map[string]cacheEntry
}

type cacheEntry struct {
	report  *types.SafetyReport
	expires time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTTL sets how long reports are cached. A non-positive ttl disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(a *Analyzer) { a.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates a safety analyzer for chain.
func NewAnalyzer(chain Chain, logger *logrus.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		chain:  chain,
		logger: logger,
		ttl:    DefaultTTL,
		now:    time.Now,
		cache:  map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// cached returns a live report for token. Expired entries are dropped on the way.
func (a *Analyzer) cached(token string) *types.SafetyReport {
	if a.ttl <= 0 {
		return nil
	}

	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	key := strings.ToLower(token)
	entry, ok := a.cache[key]
	if !ok {
		return nil
	}
	if !a.now().Before(entry.expires) {
		delete(a.cache, key)
		return nil
	}
	return entry.report
}

func (a *Analyzer) store(token string, report *types.SafetyReport) {
	if a.ttl <= 0 {
		return
	}

	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	now := a.now()
	for key, entry := range a.cache {
		if !now.Before(entry.expires) {
			delete(a.cache, key)
		}
	}
	a.cache[strings.ToLower(token)] = cacheEntry{report: report, expires: now.Add(a.ttl)}
}
