package evm

import (
	"context"
	"sort"

	"github.com/ClipFinance/dex-engine/common/codec"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryBlocks is the lookback of TransferHistory when none is given.
const DefaultHistoryBlocks = uint64(5000)

// TransferHistory returns the ERC-20 Transfer events of token sent from or
// to address within the last blocks blocks, oldest first. The range is
// scanned in windows of the chain's log chunk size; outgoing and incoming
// transfers are scanned concurrently.
//
// Parameters:
// - ctx: the context for managing the request.
// - address: the wallet address.
// - token: a symbol or contract address.
// - blocks: the lookback in blocks; zero uses DefaultHistoryBlocks.
//
// Returns:
// - []types.TransferEvent: the decoded transfers.
// - error: an error if the inputs are invalid or a window cannot be fetched.
func (e *evm) TransferHistory(ctx context.Context, address, token string, blocks uint64) ([]types.TransferEvent, error) {
	holder, err := codec.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	resolved, err := e.registry.Resolve(token)
	if err != nil {
		return nil, err
	}
	if resolved.Native {
		return nil, dexerrors.Encoding("token", token, "native transfers emit no logs")
	}
	tokenAddress, err := codec.ParseAddress(resolved.Address)
	if err != nil {
		return nil, err
	}

	client, err := e.getClient()
	if err != nil {
		return nil, err
	}

	if blocks == 0 {
		blocks = DefaultHistoryBlocks
	}
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current block number")
	}
	from := uint64(0)
	if head+1 > blocks {
		from = head + 1 - blocks
	}

	filters := []types.LogFilter{
		{Addresses: []string{tokenAddress.Hex()}, Topics: [][]string{{codec.TransferEventTopic}, {holder.Topic()}}},
		{Addresses: []string{tokenAddress.Hex()}, Topics: [][]string{{codec.TransferEventTopic}, nil, {holder.Topic()}}},
	}
	results := make([][]types.Log, len(filters))

	g, gctx := errgroup.WithContext(ctx)
	for i, filter := range filters {
		i, filter := i, filter
		g.Go(func() error {
			logs, err := client.ChunkedGetLogs(gctx, filter, from, head, e.config.LogChunkSize)
			if err != nil {
				return err
			}
			results[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to scan transfer logs")
	}

	seen := map[string]bool{}
	var events []types.TransferEvent
	for _, logs := range results {
		for _, log := range logs {
			key := log.TxHash + ":" + codec.EncodeUint64Quantity(log.LogIndex)
			if seen[key] {
				continue
			}
			seen[key] = true

			event, err := decodeTransfer(log)
			if err != nil {
				e.logger.WithFields(logrus.Fields{
					"chain":  e.config.Name,
					"txHash": log.TxHash,
				}).WithError(err).Debug("Skipping malformed Transfer log")
				continue
			}
			event.Token = resolved.Symbol
			event.Incoming = event.To == holder.Hex()
			events = append(events, event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return events, nil
}

// decodeTransfer decodes Transfer(address indexed from, address indexed to, uint256 value).
func decodeTransfer(log types.Log) (types.TransferEvent, error) {
	if len(log.Topics) != 3 {
		return types.TransferEvent{}, errors.Errorf("expected 3 topics, got %d", len(log.Topics))
	}
	from, err := codec.AddressFromTopic(log.Topics[1])
	if err != nil {
		return types.TransferEvent{}, err
	}
	to, err := codec.AddressFromTopic(log.Topics[2])
	if err != nil {
		return types.TransferEvent{}, err
	}
	value, err := codec.DecodeUint256Word(log.Data, 0)
	if err != nil {
		return types.TransferEvent{}, err
	}

	return types.TransferEvent{
		From:        from.Hex(),
		To:          to.Hex(),
		Value:       value,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
	}, nil
}
