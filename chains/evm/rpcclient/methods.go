package rpcclient

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
)

// CallMsg is the call object of eth_call and eth_estimateGas.
type CallMsg struct {
	From  string
	To    string
	Value *big.Int
	Data  []byte
}

func (m CallMsg) toArg() (map[string]interface{}, error) {
	arg := map[string]interface{}{}
	if m.From != "" {
		from, err := codec.ParseAddress(m.From)
		if err != nil {
			return nil, err
		}
		arg["from"] = from.Lower()
	}
	to, err := codec.ParseAddress(m.To)
	if err != nil {
		return nil, err
	}
	arg["to"] = to.Lower()
	if m.Value != nil && m.Value.Sign() > 0 {
		arg["value"] = codec.EncodeQuantity(m.Value)
	}
	if len(m.Data) > 0 {
		arg["data"] = codec.EncodeHex(m.Data)
	}
	return arg, nil
}

func decodeUint64(raw string) (uint64, error) {
	return codec.DecodeUint64(raw)
}

func (c *Client) quantity(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	var raw string
	if err := c.callInto(ctx, &raw, method, params...); err != nil {
		return nil, err
	}
	return codec.DecodeQuantity(raw)
}

func (c *Client) uint64Quantity(ctx context.Context, method string, params ...interface{}) (uint64, error) {
	var raw string
	if err := c.callInto(ctx, &raw, method, params...); err != nil {
		return 0, err
	}
	return decodeUint64(raw)
}

func (c *Client) hexBytes(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	var raw string
	if err := c.callInto(ctx, &raw, method, params...); err != nil {
		return nil, err
	}
	return codec.DecodeHex(raw)
}

func lowerAddress(address string) (string, error) {
	a, err := codec.ParseAddress(address)
	if err != nil {
		return "", err
	}
	return a.Lower(), nil
}

// ChainID returns eth_chainId.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	return c.uint64Quantity(ctx, "eth_chainId")
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.uint64Quantity(ctx, "eth_blockNumber")
}

// GetBalance returns the native balance of address at the latest block.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	addr, err := lowerAddress(address)
	if err != nil {
		return nil, err
	}
	return c.quantity(ctx, "eth_getBalance", addr, "latest")
}

// CallContract performs eth_call against the latest block.
func (c *Client) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	arg, err := CallMsg{To: to, Data: data}.toArg()
	if err != nil {
		return nil, err
	}
	return c.hexBytes(ctx, "eth_call", arg, "latest")
}

// GetTransactionCount returns the nonce of address including pending
// transactions.
func (c *Client) GetTransactionCount(ctx context.Context, address string) (uint64, error) {
	addr, err := lowerAddress(address)
	if err != nil {
		return 0, err
	}
	return c.uint64Quantity(ctx, "eth_getTransactionCount", addr, "pending")
}

// EstimateGas returns eth_estimateGas for msg.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	arg, err := msg.toArg()
	if err != nil {
		return 0, err
	}
	return c.uint64Quantity(ctx, "eth_estimateGas", arg)
}

// BaseFee returns the base fee of the latest block.
func (c *Client) BaseFee(ctx context.Context) (*big.Int, error) {
	var block struct {
		BaseFeePerGas *string `json:"baseFeePerGas"`
	}
	if err := c.callInto(ctx, &block, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if block.BaseFeePerGas == nil {
		return nil, errors.New("base fee is nil")
	}
	return codec.DecodeQuantity(*block.BaseFeePerGas)
}

// MaxPriorityFeePerGas returns the node's suggested priority fee.
func (c *Client) MaxPriorityFeePerGas(ctx context.Context) (*big.Int, error) {
	return c.quantity(ctx, "eth_maxPriorityFeePerGas")
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var hash string
	if err := c.callInto(ctx, &hash, "eth_sendRawTransaction", codec.EncodeHex(raw)); err != nil {
		return "", err
	}
	return hash, nil
}

// GetCode returns the deployed bytecode at address; empty for accounts.
func (c *Client) GetCode(ctx context.Context, address string) ([]byte, error) {
	addr, err := lowerAddress(address)
	if err != nil {
		return nil, err
	}
	return c.hexBytes(ctx, "eth_getCode", addr, "latest")
}

type rpcLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
}

func (l rpcLog) toLog() (types.Log, error) {
	data, err := codec.DecodeHex(l.Data)
	if err != nil {
		return types.Log{}, err
	}
	block, err := decodeUint64(l.BlockNumber)
	if err != nil {
		return types.Log{}, err
	}
	index, err := decodeUint64(l.LogIndex)
	if err != nil {
		return types.Log{}, err
	}
	return types.Log{
		Address:     l.Address,
		Topics:      l.Topics,
		Data:        data,
		BlockNumber: block,
		TxHash:      l.TransactionHash,
		LogIndex:    index,
	}, nil
}

type rpcReceipt struct {
	TransactionHash   string   `json:"transactionHash"`
	Status            string   `json:"status"`
	BlockNumber       string   `json:"blockNumber"`
	GasUsed           string   `json:"gasUsed"`
	EffectiveGasPrice string   `json:"effectiveGasPrice"`
	Logs              []rpcLog `json:"logs"`
}

// GetTransactionReceipt returns the receipt of txHash, or nil while the
// transaction is not mined.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	raw, err := c.Call(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var r rpcReceipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, &dexerrors.RpcError{Method: "eth_getTransactionReceipt", Message: "malformed receipt: " + err.Error(), Err: err}
	}

	receipt := &types.Receipt{TxHash: r.TransactionHash}
	if receipt.Status, err = decodeUint64(r.Status); err != nil {
		return nil, err
	}
	if receipt.BlockNumber, err = decodeUint64(r.BlockNumber); err != nil {
		return nil, err
	}
	if receipt.GasUsed, err = decodeUint64(r.GasUsed); err != nil {
		return nil, err
	}
	if r.EffectiveGasPrice != "" {
		if receipt.EffectiveGasPrice, err = codec.DecodeQuantity(r.EffectiveGasPrice); err != nil {
			return nil, err
		}
	}
	for _, l := range r.Logs {
		log, err := l.toLog()
		if err != nil {
			return nil, err
		}
		receipt.Logs = append(receipt.Logs, log)
	}

	return receipt, nil
}

// GetLogs returns the logs matching filter within [from, to].
func (c *Client) GetLogs(ctx context.Context, filter types.LogFilter, from, to uint64) ([]types.Log, error) {
	arg := map[string]interface{}{
		"fromBlock": codec.EncodeUint64Quantity(from),
		"toBlock":   codec.EncodeUint64Quantity(to),
	}
	if len(filter.Addresses) > 0 {
		addresses := make([]string, 0, len(filter.Addresses))
		for _, a := range filter.Addresses {
			lower, err := lowerAddress(a)
			if err != nil {
				return nil, err
			}
			addresses = append(addresses, lower)
		}
		arg["address"] = addresses
	}
	if len(filter.Topics) > 0 {
		topics := make([]interface{}, len(filter.Topics))
		for i, t := range filter.Topics {
			if len(t) > 0 {
				topics[i] = t
			}
		}
		arg["topics"] = topics
	}

	var raw []rpcLog
	if err := c.callInto(ctx, &raw, "eth_getLogs", arg); err != nil {
		return nil, err
	}

	logs := make([]types.Log, 0, len(raw))
	for _, l := range raw {
		log, err := l.toLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// ChunkedGetLogs scans [from, to] in windows of chunk blocks, one
// eth_getLogs call per window, and concatenates the results in block order.
// A zero chunk uses DefaultLogChunkSize.
//
// Parameters:
// - ctx: the context for managing the scan.
// - filter: the address and topic filter.
// - from: the first block, inclusive.
// - to: the last block, inclusive.
// - chunk: the window size in blocks.
//
// Returns:
// - []types.Log: the matching logs.
// - error: the first failing window's error, wrapped with its range.
func (c *Client) ChunkedGetLogs(ctx context.Context, filter types.LogFilter, from, to, chunk uint64) ([]types.Log, error) {
	if chunk == 0 {
		chunk = DefaultLogChunkSize
	}

	var logs []types.Log
	for start := from; start <= to; {
		end := start + chunk - 1
		if end > to || end < start {
			end = to
		}

		window, err := c.GetLogs(ctx, filter, start, end)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get logs for blocks %d-%d", start, end)
		}
		logs = append(logs, window...)

		if end == to {
			break
		}
		start = end + 1
	}

	return logs, nil
}
