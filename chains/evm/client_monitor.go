package evm

import (
	"context"

	"github.com/ClipFinance/dex-engine/connectionmonitor"
)

// evmConnectionManager implements the BlockchainClient interface for the
// chain's current RPC client.
type evmConnectionManager struct {
	chain *evm // Reference to the EVM chain instance.
}

// initMonitor initializes the connection monitor for the EVM chain.
//
// Parameters:
// - ctx: the context for managing the initialization process.
// - opts: monitor settings.
//
// Returns:
// - error: an error if there is an issue starting the connection monitor.
func (e *evm) initMonitor(ctx context.Context, opts ...connectionmonitor.Option) error {
	e.monitorMutex.Lock()
	defer e.monitorMutex.Unlock()

	connectionManager := &evmConnectionManager{chain: e}
	e.monitor = connectionmonitor.NewConnectionMonitor(connectionManager, e.logger, e.config.Name, opts...)
	return e.monitor.Start(ctx)
}

// CheckConnection checks the current endpoint by retrieving the block number.
//
// Parameters:
// - ctx: the context for managing the connection check.
//
// Returns:
// - error: an error if the client is closed or the endpoint does not answer.
func (w *evmConnectionManager) CheckConnection(ctx context.Context) error {
	client, err := w.chain.getClient()
	if err != nil {
		return err
	}
	return client.CheckConnection(ctx)
}

// Reconnect moves the client to the next configured endpoint.
//
// Parameters:
// - ctx: the context for managing the reconnection process.
//
// Returns:
// - error: an error if the client is closed or the next endpoint cannot be dialed.
func (w *evmConnectionManager) Reconnect(ctx context.Context) error {
	client, err := w.chain.getClient()
	if err != nil {
		return err
	}
	return client.Reconnect(ctx)
}
