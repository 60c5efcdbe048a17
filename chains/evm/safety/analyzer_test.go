package safety

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	weth  = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	token = "0x1111111111111111111111111111111111111111"
)

var errRevert = &dexerrors.RpcError{Method: "eth_call", Code: 3, Message: "execution reverted"}

type quoteKey struct {
	in, out string
	fee     uint32
}

type quoteResult struct {
	out *big.Int
	err error
}

type fakeChain struct {
	mu      sync.Mutex
	config  *types.ChainConfig
	code    []byte
	codeErr error
	quotes  map[quoteKey]quoteResult
	calls   map[string][]byte
	reads   int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		config: &types.ChainConfig{
			Name:    "Ethereum",
			ChainID: 1,
			Contracts: &types.Contracts{
				QuoterV2:     "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
				SwapRouter02: "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
				WETH:         weth,
			},
		},
		code:   []byte{0x60, 0x80, 0x60, 0x40},
		quotes: map[quoteKey]quoteResult{},
		calls:  map[string][]byte{},
	}
}

func (f *fakeChain) Config() *types.ChainConfig { return f.config }

func (f *fakeChain) QuoteExactInputSingle(_ context.Context, in, out string, _ *big.Int, fee uint32) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.quotes[quoteKey{strings.ToLower(in), strings.ToLower(out), fee}]
	if !ok {
		return nil, errRevert
	}
	return r.out, r.err
}

func (f *fakeChain) CallContract(_ context.Context, _ string, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	out, ok := f.calls[codec.EncodeHex(data[:4])]
	if !ok {
		return nil, errRevert
	}
	return out, nil
}

func (f *fakeChain) GetCode(context.Context, string) ([]byte, error) {
	return f.code, f.codeErr
}

func (f *fakeChain) pool(fee uint32, buyOut *big.Int, sell quoteResult) {
	f.quotes[quoteKey{strings.ToLower(weth), strings.ToLower(token), fee}] = quoteResult{out: buyOut}
	f.quotes[quoteKey{strings.ToLower(token), strings.ToLower(weth), fee}] = sell
}

func (f *fakeChain) standard() {
	word := func(v int64) []byte {
		w, _ := codec.EncodeUint256Word(big.NewInt(v))
		return w
	}
	f.calls[codec.EncodeHex(codec.EncodeName())] = abiString("Test")
	f.calls[codec.EncodeHex(codec.EncodeSymbol())] = abiString("TST")
	f.calls[codec.EncodeHex(codec.EncodeDecimals())] = word(9)
	f.calls[codec.EncodeHex(codec.EncodeTotalSupply())] = word(1_000_000)
}

func (f *fakeChain) owner(address string) {
	f.calls[codec.EncodeHex(codec.EncodeOwner())] = codec.EncodeAddressWord(codec.MustParseAddress(address))
}

func abiString(s string) []byte {
	offset, _ := codec.EncodeUint256Word(big.NewInt(32))
	length, _ := codec.EncodeUint256Word(big.NewInt(int64(len(s))))
	data := make([]byte, 32)
	copy(data, s)
	return append(append(offset, length...), data...)
}

func newTestAnalyzer(chain Chain, opts ...Option) *Analyzer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAnalyzer(chain, logger, opts...)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		loss *big.Rat
		want types.Verdict
	}{
		{big.NewRat(0, 1), types.VerdictNormal},
		{big.NewRat(499, 10000), types.VerdictNormal},
		{big.NewRat(5, 100), types.VerdictModerate},
		{big.NewRat(20, 100), types.VerdictModerate},
		{big.NewRat(2001, 10000), types.VerdictHigh},
		{big.NewRat(50, 100), types.VerdictHigh},
		{big.NewRat(5001, 10000), types.VerdictHoneypot},
		{big.NewRat(1, 1), types.VerdictHoneypot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.loss), tt.loss.String())
	}
}

func TestLossRatioClampsGains(t *testing.T) {
	assert.Equal(t, 0, LossRatio(big.NewInt(100), big.NewInt(120)).Sign())
	assert.Zero(t, big.NewRat(1, 4).Cmp(LossRatio(big.NewInt(100), big.NewInt(75))))
	assert.Equal(t, "25", LossPercent(big.NewRat(1, 4)).String())
}

func TestProbeNormal(t *testing.T) {
	chain := newFakeChain()
	chain.pool(3000, big.NewInt(5000), quoteResult{out: big.NewInt(994_000_000_000_000)})

	probe := newTestAnalyzer(chain).Probe(context.Background(), token)
	assert.True(t, probe.PoolFound)
	assert.Equal(t, uint32(3000), probe.FeeTier)
	assert.Equal(t, types.VerdictNormal, probe.Verdict)
	assert.Equal(t, "0.6", LossPercent(probe.LossRatio).StringFixed(1))
}

func TestProbeFallsThroughFeeTiers(t *testing.T) {
	chain := newFakeChain()
	chain.pool(500, big.NewInt(5000), quoteResult{out: big.NewInt(700_000_000_000_000)})

	probe := newTestAnalyzer(chain).Probe(context.Background(), token)
	assert.True(t, probe.PoolFound)
	assert.Equal(t, uint32(500), probe.FeeTier)
	assert.Equal(t, types.VerdictHigh, probe.Verdict)
}

func TestProbeSellRevertIsHoneypot(t *testing.T) {
	chain := newFakeChain()
	chain.pool(3000, big.NewInt(5000), quoteResult{err: errRevert})

	probe := newTestAnalyzer(chain).Probe(context.Background(), token)
	assert.True(t, probe.SellReverted)
	assert.Equal(t, types.VerdictHoneypot, probe.Verdict)
}

func TestProbeSellTransportErrorIsUnknown(t *testing.T) {
	chain := newFakeChain()
	chain.pool(3000, big.NewInt(5000), quoteResult{err: &dexerrors.RpcError{Method: "eth_call", Message: "connection reset"}})

	probe := newTestAnalyzer(chain).Probe(context.Background(), token)
	assert.False(t, probe.SellReverted)
	assert.Equal(t, types.VerdictUnknown, probe.Verdict)
	assert.Contains(t, probe.Reason, "sell quote failed")
}

func TestProbeNoPool(t *testing.T) {
	probe := newTestAnalyzer(newFakeChain()).Probe(context.Background(), token)
	assert.False(t, probe.PoolFound)
	assert.Equal(t, types.VerdictUnknown, probe.Verdict)
	assert.Equal(t, NoPoolReason, probe.Reason)
}

func TestProbeWithoutSwaps(t *testing.T) {
	chain := newFakeChain()
	chain.config.Contracts = nil

	probe := newTestAnalyzer(chain).Probe(context.Background(), token)
	assert.Equal(t, types.VerdictUnknown, probe.Verdict)
	assert.Contains(t, probe.Reason, "not configured")
}

func TestCheckTokenClean(t *testing.T) {
	chain := newFakeChain()
	chain.standard()
	chain.owner("0x0000000000000000000000000000000000000000")
	chain.pool(3000, big.NewInt(5000), quoteResult{out: big.NewInt(994_000_000_000_000)})

	report, err := newTestAnalyzer(chain).CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, report.Standard)
	assert.True(t, report.OwnerRenounced)
	assert.Equal(t, uint8(9), report.Decimals)
	assert.Equal(t, big.NewInt(1_000_000), report.TotalSupply)
	assert.Equal(t, 0, report.Score)
	assert.Equal(t, types.RiskLow, report.Level)
	assert.Empty(t, report.Flags)
	assert.False(t, report.BuyOnly())
}

func TestCheckTokenHoneypot(t *testing.T) {
	chain := newFakeChain()
	chain.owner("0x2222222222222222222222222222222222222222")
	chain.pool(10000, big.NewInt(5000), quoteResult{err: errRevert})

	report, err := newTestAnalyzer(chain).CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, report.Standard)
	assert.ElementsMatch(t, []string{"name", "symbol", "decimals", "totalSupply"}, report.Missing)
	assert.Equal(t, 2+3+15, report.Score)
	assert.Equal(t, types.RiskCritical, report.Level)
	assert.True(t, report.BuyOnly())
	assert.Equal(t, 20, DisplayScore(report.Score))
}

func TestCheckTokenNoPoolAndTax(t *testing.T) {
	chain := newFakeChain()
	chain.standard()

	report, err := newTestAnalyzer(chain).CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Score)
	assert.Equal(t, types.RiskModerate, report.Level)
	assert.Equal(t, []string{"No Uniswap V3 pool"}, report.Flags)

	chain = newFakeChain()
	chain.standard()
	chain.pool(3000, big.NewInt(5000), quoteResult{out: big.NewInt(900_000_000_000_000)})

	report, err = newTestAnalyzer(chain).CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Score)
	assert.Equal(t, []string{"Tax: 10.0%"}, report.Flags)
}

func TestCheckTokenWithoutCode(t *testing.T) {
	chain := newFakeChain()
	chain.code = nil

	report, err := newTestAnalyzer(chain).CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Fatal)
	assert.Nil(t, report.Probe)
	assert.Equal(t, 0, chain.reads)
}

func TestCheckTokenCodeUnreadable(t *testing.T) {
	chain := newFakeChain()
	chain.standard()
	chain.codeErr = errors.New("boom")
	chain.pool(3000, big.NewInt(5000), quoteResult{out: big.NewInt(999_000_000_000_000)})

	report, err := newTestAnalyzer(chain).CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, -1, report.CodeSize)
	assert.Len(t, report.Warnings, 1)
	assert.Equal(t, types.RiskLow, report.Level)
}

func TestCheckTokenRejectsBadAddress(t *testing.T) {
	_, err := newTestAnalyzer(newFakeChain()).CheckToken(context.Background(), "0x1234")
	var encErr *dexerrors.EncodingError
	assert.True(t, errors.As(err, &encErr))
}

func TestCheckTokenCache(t *testing.T) {
	chain := newFakeChain()
	chain.standard()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	analyzer := newTestAnalyzer(chain, WithClock(func() time.Time { return now }))

	first, err := analyzer.CheckToken(context.Background(), token)
	require.NoError(t, err)
	reads := chain.reads

	now = now.Add(4 * time.Minute)
	second, err := analyzer.CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, reads, chain.reads)

	now = now.Add(2 * time.Minute)
	third, err := analyzer.CheckToken(context.Background(), token)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Greater(t, chain.reads, reads)
}
