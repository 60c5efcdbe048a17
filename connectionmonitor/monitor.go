package connectionmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/ClipFinance/dex-engine/common/poll"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// defaultCheckInterval defines interval between endpoint health checks
	defaultCheckInterval = 30 * time.Second
	// defaultReconnectDelay defines the pause between two reconnection attempts
	defaultReconnectDelay = 5 * time.Second
	// maxReconnectAttempts defines maximum number of reconnection attempts
	maxReconnectAttempts = 3
)

// ConnectionMonitor represents connection state monitoring interface
type ConnectionMonitor interface {
	// Start starts connection monitoring
	Start(ctx context.Context) error
	// Stop stops connection monitoring and waits for the loop to exit
	Stop()
}

// BlockchainClient represents an RPC connection that can be health checked
// and moved to another endpoint.
type BlockchainClient interface {
	// CheckConnection checks if the current endpoint answers
	CheckConnection(ctx context.Context) error
	// Reconnect switches to the next configured endpoint
	Reconnect(ctx context.Context) error
}

// Option configures a connection monitor.
type Option func(*connectionMonitor)

// WithInterval sets the delay between two health checks.
func WithInterval(d time.Duration) Option {
	return func(m *connectionMonitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithReconnectDelay sets the pause between two failed reconnection attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *connectionMonitor) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

// WithMetrics counts failed checks and endpoint switches on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *connectionMonitor) {
		if reg != nil {
			m.events = registerEvents(reg)
		}
	}
}

type connectionMonitor struct {
	client         BlockchainClient
	logger         *logrus.Logger
	chainName      string
	interval       time.Duration
	reconnectDelay time.Duration
	events         *prometheus.CounterVec

	monitorMutex sync.Mutex
	stopChan     chan struct{}
	done         chan struct{}
}

// NewConnectionMonitor creates a new connection monitor instance.
//
// Parameters:
// - client: the blockchain client to monitor.
// - logger: the logger for logging purposes.
// - chainName: the name of the blockchain chain.
// - opts: optional settings.
//
// Returns:
// - ConnectionMonitor: the new connection monitor instance.
func NewConnectionMonitor(
	client BlockchainClient,
	logger *logrus.Logger,
	chainName string,
	opts ...Option,
) ConnectionMonitor {
	m := &connectionMonitor{
		client:         client,
		logger:         logger,
		chainName:      chainName,
		interval:       defaultCheckInterval,
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start starts connection monitoring.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the connection monitor is already running.
func (m *connectionMonitor) Start(ctx context.Context) error {
	m.monitorMutex.Lock()
	defer m.monitorMutex.Unlock()

	if m.stopChan != nil {
		return errors.Errorf("connection monitor is already running for chain %s", m.chainName)
	}
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})

	go m.monitorConnection(ctx, m.stopChan, m.done)
	return nil
}

// Stop stops connection monitoring.
func (m *connectionMonitor) Stop() {
	m.monitorMutex.Lock()
	stop, done := m.stopChan, m.done
	m.stopChan, m.done = nil, nil
	m.monitorMutex.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// monitorConnection runs health checks until ctx is cancelled or Stop is called.
func (m *connectionMonitor) monitorConnection(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.WithField("chain", m.chainName).Info("Connection monitoring stopped due to context cancellation")
			return

		case <-stop:
			m.logger.WithField("chain", m.chainName).Info("Connection monitoring stopped")
			return

		case <-ticker.C:
			if err := m.checkAndReconnect(ctx, stop); err != nil {
				m.logger.WithField("chain", m.chainName).WithError(err).Error("Failed to check or reconnect")
			}
		}
	}
}

// checkAndReconnect checks the endpoint and rotates to the next one when it
// does not answer.
//
// Parameters:
// - ctx: the context for managing the request.
// - stop: closed when the monitor is stopped.
//
// Returns:
// - error: an error if every reconnection attempt fails.
func (m *connectionMonitor) checkAndReconnect(ctx context.Context, stop <-chan struct{}) error {
	err := m.client.CheckConnection(ctx)
	if err == nil {
		m.logger.WithField("chain", m.chainName).Debug("Ping successful")
		return nil
	}

	m.count("check_failed")
	m.logger.WithField("chain", m.chainName).WithError(err).Warn("Connection check failed, attempting to reconnect")

	// A stopped monitor abandons the remaining attempts.
	retryCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-retryCtx.Done():
		}
	}()

	attempt := 0
	err = poll.Retry(retryCtx, maxReconnectAttempts, m.reconnectDelay, func(ctx context.Context) error {
		attempt++
		if err := m.client.Reconnect(ctx); err != nil {
			m.logger.WithFields(logrus.Fields{
				"chain":   m.chainName,
				"attempt": attempt,
			}).WithError(err).Error("Reconnection attempt failed")
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		m.count("reconnected")
		m.logger.WithFields(logrus.Fields{
			"chain":   m.chainName,
			"attempt": attempt,
		}).Info("Client successfully reconnected")
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case retryCtx.Err() != nil:
		return nil
	default:
		m.count("reconnect_failed")
		return errors.Wrapf(err, "failed to reconnect to chain %s", m.chainName)
	}
}

func (m *connectionMonitor) count(event string) {
	if m.events != nil {
		m.events.WithLabelValues(m.chainName, event).Inc()
	}
}

func registerEvents(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dex",
		Subsystem: "rpc",
		Name:      "connection_events_total",
		Help:      "Connection monitor health check failures and endpoint switches",
	}, []string{"chain", "event"})

	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil
		}
		return already.ExistingCollector.(*prometheus.CounterVec)
	}
	return c
}
