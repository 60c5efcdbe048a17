package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/ClipFinance/dex-engine/chains/evm"
	dexerrors "github.com/ClipFinance/dex-engine/common/errors"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// newMonitorCmd runs the connection monitor of the configured chain and
// serves the RPC and monitor metrics until interrupted.
func newMonitorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch RPC endpoint health and serve prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			registry, release, err := a.registry(ctx, []uint64{a.config.ChainID},
				evm.WithRegisterer(reg), evm.WithConnectionMonitor())
			if err != nil {
				return err
			}
			defer release()
			if registry.Get(a.config.ChainID) == nil {
				return errors.Wrapf(dexerrors.ErrInvalidConfig, "chain %d has no RPC endpoints", a.config.ChainID)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
			server := &http.Server{
				Addr:              a.config.Monitor.Addr,
				Handler:           mux,
				ReadHeaderTimeout: shutdownTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "metrics server failed")
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			a.logger.WithFields(logrus.Fields{
				"chainId": a.config.ChainID,
				"addr":    a.config.Monitor.Addr,
			}).Info("Monitoring RPC endpoints")

			return g.Wait()
		},
	}
	cmd.Flags().String("metrics-addr", ":2112", "address to serve /metrics on")
	return cmd
}
