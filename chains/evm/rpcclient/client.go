package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/ClipFinance/dex-engine/common/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLogChunkSize is the eth_getLogs block window.
	DefaultLogChunkSize = uint64(500)
	// defaultRequestTimeout bounds a single HTTP round-trip.
	defaultRequestTimeout = 30 * time.Second
)

// Client is a JSON-RPC client bound to one chain. It holds a list of
// endpoints and talks to one of them at a time; Reconnect moves to the next.
type Client struct {
	logger          *logrus.Logger
	chainName       string
	expectedChainID uint64
	httpClient      *http.Client
	metrics         *metrics

	reconnectMutex sync.Mutex // Serializes Reconnect; never held by Call.

	clientMutex sync.RWMutex // Mutex for client, current and closed.
	client      *rpc.Client
	urls        []string
	current     int
	closed      bool
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics registers request counters and latency histograms with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newMetrics(reg)
	}
}

// WithHTTPClient replaces the HTTP client used for http(s) endpoints.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithChainName sets the chain label used in logs and metrics.
func WithChainName(name string) Option {
	return func(c *Client) {
		c.chainName = name
	}
}

// WithExpectedChainID makes Dial and Reconnect verify eth_chainId.
func WithExpectedChainID(chainID uint64) Option {
	return func(c *Client) {
		c.expectedChainID = chainID
	}
}

// Dial connects to the first endpoint of urls.
//
// Parameters:
// - ctx: the context for managing the connection.
// - urls: the RPC endpoints, primary first.
// - logger: the logger for logging events.
// - opts: optional settings.
//
// Returns:
// - *Client: the connected client.
// - error: an error if no endpoint is given, dialing fails or the chain id does not match.
func Dial(ctx context.Context, urls []string, logger *logrus.Logger, opts ...Option) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.Wrap(dexerrors.ErrInvalidConfig, "no rpc url configured")
	}

	c := &Client{
		logger:     logger,
		urls:       append([]string{}, urls...),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}

	client, err := c.dial(ctx, c.urls[0])
	if err != nil {
		return nil, err
	}
	c.client = client

	return c, nil
}

func (c *Client) dial(ctx context.Context, url string) (*rpc.Client, error) {
	mode := types.GetTransportMode(url)
	var dialOpts []rpc.ClientOption
	if mode == types.HTTPMode {
		dialOpts = append(dialOpts, rpc.WithHTTPClient(c.httpClient))
	}

	client, err := rpc.DialOptions(ctx, url, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", url)
	}

	if c.expectedChainID != 0 {
		var raw string
		if err := client.CallContext(ctx, &raw, "eth_chainId"); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "failed to get chain id")
		}
		chainID, err := decodeUint64(raw)
		if err != nil {
			client.Close()
			return nil, err
		}
		if chainID != c.expectedChainID {
			client.Close()
			return nil, errors.Wrapf(dexerrors.ErrChainMismatch, "expected %d, got %d", c.expectedChainID, chainID)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"chain":     c.chainName,
		"transport": mode,
	}).Debug("Connected to RPC endpoint")

	return client, nil
}

// URL returns the endpoint currently in use.
func (c *Client) URL() string {
	c.clientMutex.RLock()
	defer c.clientMutex.RUnlock()
	return c.urls[c.current]
}

// Call performs a single JSON-RPC request and returns the raw result.
// A JSON-RPC error object becomes an *errors.RpcError carrying the node's
// code; transport failures become an *errors.RpcError with code zero.
// Nothing is retried.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	c.clientMutex.RLock()
	client := c.client
	c.clientMutex.RUnlock()

	if client == nil {
		return nil, &dexerrors.RpcError{Method: method, Message: "client not initialized"}
	}

	start := time.Now()
	var result json.RawMessage
	err := client.CallContext(ctx, &result, method, params...)
	c.metrics.duration.WithLabelValues(c.chainName, method).Observe(time.Since(start).Seconds())

	if err != nil {
		rpcErr := classify(method, err)
		outcome := "rpc_error"
		if rpcErr.IsTransport() {
			outcome = "transport_error"
		}
		c.metrics.requests.WithLabelValues(c.chainName, method, outcome).Inc()

		c.logger.WithFields(logrus.Fields{
			"chain":  c.chainName,
			"method": method,
			"code":   rpcErr.Code,
		}).WithError(err).Debug("RPC call failed")
		return nil, rpcErr
	}

	c.metrics.requests.WithLabelValues(c.chainName, method, "ok").Inc()
	return result, nil
}

// callInto performs Call and unmarshals the result into out.
func (c *Client) callInto(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &dexerrors.RpcError{Method: method, Message: "malformed result: " + err.Error(), Err: err}
	}
	return nil
}

func classify(method string, err error) *dexerrors.RpcError {
	var codeErr rpc.Error
	if errors.As(err, &codeErr) && codeErr.ErrorCode() != 0 {
		return &dexerrors.RpcError{Method: method, Code: codeErr.ErrorCode(), Message: codeErr.Error(), Err: err}
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &dexerrors.RpcError{Method: method, Message: httpErr.Status, Err: err}
	}

	return &dexerrors.RpcError{Method: method, Message: err.Error(), Err: err}
}

// CheckConnection checks the endpoint by retrieving the current block number.
func (c *Client) CheckConnection(ctx context.Context) error {
	_, err := c.BlockNumber(ctx)
	return err
}

// Reconnect dials the next endpoint in the list, wrapping around to the
// primary, and swaps it in once it answers. Calls keep using the current
// endpoint while the next one is dialed.
//
// Parameters:
// - ctx: the context for managing the reconnection process.
//
// Returns:
// - error: an error if the next endpoint cannot be dialed or the client is closed.
func (c *Client) Reconnect(ctx context.Context) error {
	c.reconnectMutex.Lock()
	defer c.reconnectMutex.Unlock()

	c.clientMutex.RLock()
	next := (c.current + 1) % len(c.urls)
	url := c.urls[next]
	c.clientMutex.RUnlock()

	client, err := c.dial(ctx, url)
	if err != nil {
		return err
	}

	c.clientMutex.Lock()
	if c.closed {
		c.clientMutex.Unlock()
		client.Close()
		return errors.New("rpc client is closed")
	}
	old := c.client
	c.client = client
	c.current = next
	c.clientMutex.Unlock()

	if old != nil {
		old.Close()
	}

	c.logger.WithFields(logrus.Fields{
		"chain":    c.chainName,
		"endpoint": next,
	}).Info("Switched RPC endpoint")

	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.clientMutex.Lock()
	defer c.clientMutex.Unlock()

	c.closed = true
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}
