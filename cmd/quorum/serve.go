package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	cluster  clusterFlags
	httpAddr string
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a cluster until interrupted",
		Long: `Provision and start a cluster and keep it running until SIGINT or SIGTERM.
Cluster state is served over HTTP at /cluster, keys at /keys, and metrics
at /metrics when metrics are enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := prepare(cmd, global, &opts.cluster)
			if err != nil {
				return err
			}
			addr := cfg.Metrics.Address
			if cmd.Flags().Changed("http-addr") {
				addr = opts.httpAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(cmd, cfg.Logging)
			h, err := bringUp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer tearDown(h, cfg)

			connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.ClientConnect)
			c, err := h.CreateClient(connectCtx)
			cancel()
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           newRouter(h, c, cfg.Metrics.Enabled),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			printf(cmd, "cluster of %d nodes running, leader %s\n", len(h.Nodes()), h.Leader().ID())
			printf(cmd, "serving http://%s\n", ln.Addr())
			logger.Info("serving cluster", "addr", ln.Addr().String())

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}

	opts.cluster.bind(cmd)
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP listen address (overrides metrics.address)")
	return cmd
}
