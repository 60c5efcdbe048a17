// Package ethtest runs an in-process JSON-RPC node for tests. It serves the
// eth_ methods the engine uses through go-ethereum's rpc server and keeps a
// tiny state machine: balances, nonces, ERC-20 contracts, Uniswap V3 quoter
// pools and mined receipts.
package ethtest

import (
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ClipFinance/dex-engine/common/codec"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// SentTx is a raw transaction received through eth_sendRawTransaction.
type SentTx struct {
	Raw  []byte
	Tx   *ethtypes.Transaction
	From common.Address
}

// CallFunc answers an eth_call or applies a mined transaction's calldata.
// State changes are only kept when commit is set.
type CallFunc func(from codec.Address, data []byte, commit bool) ([]byte, error)

// Node is the fake chain state.
type Node struct {
	mu sync.Mutex

	ChainID     uint64
	Head        uint64
	BaseFee     *big.Int
	PriorityFee *big.Int

	balances  map[codec.Address]*big.Int
	nonces    map[codec.Address]uint64
	code      map[codec.Address][]byte
	contracts map[codec.Address]map[[4]byte]CallFunc
	receipts  map[string]map[string]interface{}
	logs      []map[string]interface{}

	// EstimateGasErr makes eth_estimateGas fail.
	EstimateGasErr error
	// GasEstimate is returned by eth_estimateGas.
	GasEstimate uint64
	// Mine decides the fate of a sent transaction: mined reports whether a
	// receipt exists, status is 1 for success.
	Mine func(tx *ethtypes.Transaction) (mined bool, status uint64)
	// PriorityFeeErr makes eth_maxPriorityFeePerGas fail.
	PriorityFeeErr error

	sent      []SentTx
	calls     map[string]int
	logRanges [][2]uint64

	server *httptest.Server
}

// NewNode starts a node on mainnet's chain id with sensible defaults.
// The server is closed when the test finishes.
func NewNode(t testing.TB) *Node {
	t.Helper()

	n := &Node{
		ChainID:     1,
		Head:        20_000_000,
		BaseFee:     big.NewInt(10_000_000_000),
		PriorityFee: big.NewInt(2_000_000_000),
		GasEstimate: 100_000,
		balances:    map[codec.Address]*big.Int{},
		nonces:      map[codec.Address]uint64{},
		code:        map[codec.Address][]byte{},
		contracts:   map[codec.Address]map[[4]byte]CallFunc{},
		receipts:    map[string]map[string]interface{}{},
		calls:       map[string]int{},
	}

	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethService{node: n}); err != nil {
		t.Fatalf("register eth service: %v", err)
	}
	n.server = httptest.NewServer(server)
	t.Cleanup(func() {
		n.server.Close()
		server.Stop()
	})

	return n
}

// URL returns the HTTP endpoint of the node.
func (n *Node) URL() string {
	return n.server.URL
}

// SetBalance sets the native balance of an address.
func (n *Node) SetBalance(address codec.Address, wei *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[address] = new(big.Int).Set(wei)
}

// Balance returns the native balance of an address.
func (n *Node) Balance(address codec.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balanceLocked(address)
}

func (n *Node) balanceLocked(address codec.Address) *big.Int {
	if b, ok := n.balances[address]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// SetNonce sets the pending nonce of an address.
func (n *Node) SetNonce(address codec.Address, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[address] = nonce
}

// SetCode marks address as a contract. Handle does this implicitly.
func (n *Node) SetCode(address codec.Address, code []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.code[address] = code
}

// Handle routes eth_call and mined transactions sent to address with the
// given selector to fn.
func (n *Node) Handle(address codec.Address, selector [4]byte, fn CallFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.contracts[address] == nil {
		n.contracts[address] = map[[4]byte]CallFunc{}
	}
	n.contracts[address][selector] = fn
	if _, ok := n.code[address]; !ok {
		n.code[address] = []byte{0x60, 0x80, 0x60, 0x40}
	}
}

// AddLog appends a log that eth_getLogs can return.
func (n *Node) AddLog(address codec.Address, topics []string, data []byte, block uint64, txHash string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = append(n.logs, map[string]interface{}{
		"address":         address.Lower(),
		"topics":          topics,
		"data":            codec.EncodeHex(data),
		"blockNumber":     codec.EncodeUint64Quantity(block),
		"transactionHash": txHash,
		"logIndex":        codec.EncodeUint64Quantity(uint64(len(n.logs))),
	})
}

// Sent returns the transactions received so far.
func (n *Node) Sent() []SentTx {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentTx{}, n.sent...)
}

// Calls returns how often an eth_ method was served.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// LogRanges returns the [from, to] window of each eth_getLogs call.
func (n *Node) LogRanges() [][2]uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][2]uint64{}, n.logRanges...)
}

// SetReceipt stores a receipt for a hash directly.
func (n *Node) SetReceipt(txHash string, status uint64, block uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts[strings.ToLower(txHash)] = receipt(txHash, status, block, 21000)
}

func receipt(txHash string, status, block, gasUsed uint64) map[string]interface{} {
	return map[string]interface{}{
		"transactionHash":   txHash,
		"status":            codec.EncodeUint64Quantity(status),
		"blockNumber":       codec.EncodeUint64Quantity(block),
		"gasUsed":           codec.EncodeUint64Quantity(gasUsed),
		"effectiveGasPrice": codec.EncodeUint64Quantity(12_000_000_000),
		"logs":              []interface{}{},
	}
}

func (n *Node) count(method string) {
	n.mu.Lock()
	n.calls[method]++
	n.mu.Unlock()
}
