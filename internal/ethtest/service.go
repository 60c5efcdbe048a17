package ethtest

import (
	"math/big"
	"strings"

	"github.com/ClipFinance/dex-engine/common/codec"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Error is a JSON-RPC error object with a code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string  { return e.Message }
func (e *Error) ErrorCode() int { return e.Code }

// Revert is the error a node returns for a reverting eth_call.
func Revert(reason string) error {
	return &Error{Code: 3, Message: "execution reverted: " + reason}
}

type callArg struct {
	From  *string `json:"from"`
	To    string  `json:"to"`
	Value *string `json:"value"`
	Data  *string `json:"data"`
}

func (a callArg) decode() (from, to codec.Address, data []byte, err error) {
	if a.From != nil {
		if from, err = codec.ParseAddress(*a.From); err != nil {
			return
		}
	}
	if to, err = codec.ParseAddress(a.To); err != nil {
		return
	}
	if a.Data != nil {
		data, err = codec.DecodeHex(*a.Data)
	}
	return
}

type logFilter struct {
	FromBlock string        `json:"fromBlock"`
	ToBlock   string        `json:"toBlock"`
	Address   []string      `json:"address"`
	Topics    []interface{} `json:"topics"`
}

// ethService exposes Node as the eth_ namespace.
type ethService struct {
	node *Node
}

func (s *ethService) ChainId() string {
	s.node.count("eth_chainId")
	return codec.EncodeUint64Quantity(s.node.ChainID)
}

func (s *ethService) BlockNumber() string {
	s.node.count("eth_blockNumber")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return codec.EncodeUint64Quantity(s.node.Head)
}

func (s *ethService) GetBalance(address string, block string) (string, error) {
	s.node.count("eth_getBalance")
	a, err := codec.ParseAddress(address)
	if err != nil {
		return "", &Error{Code: -32602, Message: err.Error()}
	}
	return codec.EncodeQuantity(s.node.Balance(a)), nil
}

func (s *ethService) GetTransactionCount(address string, block string) (string, error) {
	s.node.count("eth_getTransactionCount")
	a, err := codec.ParseAddress(address)
	if err != nil {
		return "", &Error{Code: -32602, Message: err.Error()}
	}
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return codec.EncodeUint64Quantity(s.node.nonces[a]), nil
}

func (s *ethService) GetCode(address string, block string) (string, error) {
	s.node.count("eth_getCode")
	a, err := codec.ParseAddress(address)
	if err != nil {
		return "", &Error{Code: -32602, Message: err.Error()}
	}
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return codec.EncodeHex(s.node.code[a]), nil
}

func (s *ethService) Call(arg callArg, block string) (string, error) {
	s.node.count("eth_call")
	from, to, data, err := arg.decode()
	if err != nil {
		return "", &Error{Code: -32602, Message: err.Error()}
	}
	out, err := s.node.dispatch(from, to, data, false)
	if err != nil {
		return "", err
	}
	return codec.EncodeHex(out), nil
}

func (s *ethService) EstimateGas(arg callArg) (string, error) {
	s.node.count("eth_estimateGas")
	if s.node.EstimateGasErr != nil {
		return "", s.node.EstimateGasErr
	}
	from, to, data, err := arg.decode()
	if err != nil {
		return "", &Error{Code: -32602, Message: err.Error()}
	}
	if len(data) == 0 {
		return codec.EncodeUint64Quantity(21000), nil
	}
	if _, err := s.node.dispatch(from, to, data, false); err != nil {
		return "", err
	}
	return codec.EncodeUint64Quantity(s.node.GasEstimate), nil
}

func (s *ethService) GetBlockByNumber(tag string, full bool) (map[string]interface{}, error) {
	s.node.count("eth_getBlockByNumber")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	block := map[string]interface{}{
		"number": codec.EncodeUint64Quantity(s.node.Head),
	}
	if s.node.BaseFee != nil {
		block["baseFeePerGas"] = codec.EncodeQuantity(s.node.BaseFee)
	}
	return block, nil
}

func (s *ethService) MaxPriorityFeePerGas() (string, error) {
	s.node.count("eth_maxPriorityFeePerGas")
	if s.node.PriorityFeeErr != nil {
		return "", s.node.PriorityFeeErr
	}
	return codec.EncodeQuantity(s.node.PriorityFee), nil
}

func (s *ethService) SendRawTransaction(raw string) (string, error) {
	s.node.count("eth_sendRawTransaction")
	return s.node.receive(raw)
}

func (s *ethService) GetTransactionReceipt(hash string) (map[string]interface{}, error) {
	s.node.count("eth_getTransactionReceipt")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return s.node.receipts[strings.ToLower(hash)], nil
}

func (s *ethService) GetLogs(filter logFilter) ([]map[string]interface{}, error) {
	s.node.count("eth_getLogs")
	from, err := codec.DecodeUint64(filter.FromBlock)
	if err != nil {
		return nil, &Error{Code: -32602, Message: err.Error()}
	}
	to, err := codec.DecodeUint64(filter.ToBlock)
	if err != nil {
		return nil, &Error{Code: -32602, Message: err.Error()}
	}

	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	s.node.logRanges = append(s.node.logRanges, [2]uint64{from, to})

	out := []map[string]interface{}{}
	for _, l := range s.node.logs {
		block, _ := codec.DecodeUint64(l["blockNumber"].(string))
		if block < from || block > to {
			continue
		}
		if !matchAddress(filter.Address, l["address"].(string)) {
			continue
		}
		if !matchTopics(filter.Topics, l["topics"].([]string)) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func matchAddress(filter []string, address string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, a := range filter {
		if strings.EqualFold(a, address) {
			return true
		}
	}
	return false
}

func matchTopics(filter []interface{}, topics []string) bool {
	for i, f := range filter {
		if f == nil {
			continue
		}
		if i >= len(topics) {
			return false
		}
		options, ok := f.([]interface{})
		if !ok {
			options = []interface{}{f}
		}
		matched := false
		for _, o := range options {
			if s, ok := o.(string); ok && strings.EqualFold(s, topics[i]) {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// dispatch routes calldata to the registered handler of a contract.
// Accounts without handlers answer with empty data like an EOA.
func (n *Node) dispatch(from, to codec.Address, data []byte, commit bool) ([]byte, error) {
	n.mu.Lock()
	handlers, ok := n.contracts[to]
	var fn CallFunc
	if ok && len(data) >= 4 {
		var sel [4]byte
		copy(sel[:], data[:4])
		fn = handlers[sel]
	}
	n.mu.Unlock()

	if !ok {
		return []byte{}, nil
	}
	if fn == nil {
		return nil, Revert("unknown selector")
	}
	return fn(from, data, commit)
}

// receive validates, records and optionally mines a raw transaction.
func (n *Node) receive(rawHex string) (string, error) {
	raw, err := codec.DecodeHex(rawHex)
	if err != nil {
		return "", &Error{Code: -32602, Message: err.Error()}
	}

	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return "", &Error{Code: -32000, Message: "rlp: " + err.Error()}
	}
	signer := ethtypes.LatestSignerForChainID(new(big.Int).SetUint64(n.ChainID))
	sender, err := ethtypes.Sender(signer, tx)
	if err != nil {
		return "", &Error{Code: -32000, Message: "invalid sender: " + err.Error()}
	}
	from := codec.Address(sender)

	n.mu.Lock()
	if tx.Nonce() != n.nonces[from] {
		n.mu.Unlock()
		return "", &Error{Code: -32000, Message: "nonce too low"}
	}
	n.nonces[from]++
	n.sent = append(n.sent, SentTx{Raw: raw, Tx: tx, From: sender})
	mine := n.Mine
	n.mu.Unlock()

	mined, status := true, uint64(1)
	if mine != nil {
		mined, status = mine(tx)
	}
	hash := tx.Hash().Hex()
	if !mined {
		return hash, nil
	}

	if status == 1 && tx.To() != nil {
		to := codec.Address(*tx.To())
		if len(tx.Data()) > 0 {
			if _, err := n.dispatch(from, to, tx.Data(), true); err != nil {
				status = 0
			}
		}
		if status == 1 && tx.Value().Sign() > 0 {
			n.mu.Lock()
			n.balances[from] = new(big.Int).Sub(n.balanceLocked(from), tx.Value())
			n.balances[to] = new(big.Int).Add(n.balanceLocked(to), tx.Value())
			n.mu.Unlock()
		}
	}

	n.mu.Lock()
	n.Head++
	n.receipts[strings.ToLower(hash)] = receipt(hash, status, n.Head, tx.Gas()*8/10)
	n.mu.Unlock()

	return hash, nil
}
