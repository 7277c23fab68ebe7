package main

import (
	"context"

	"github.com/KilimcininKorOglu/quorum/internal/cluster"
	"github.com/KilimcininKorOglu/quorum/internal/config"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
)

// bringUp provisions and starts a cluster described by cfg. On failure
// whatever was started is torn down before returning.
func bringUp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*cluster.Harness, error) {
	opts, err := cluster.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	h, err := cluster.New(opts)
	if err != nil {
		return nil, err
	}

	if err := h.ProvisionNodes(cfg.Cluster.Nodes); err != nil {
		tearDown(h, cfg)
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Startup)
	defer cancel()
	if err := h.Start(startCtx); err != nil {
		tearDown(h, cfg)
		return nil, err
	}
	return h, nil
}

// tearDown releases the cluster within the configured teardown timeout.
func tearDown(h *cluster.Harness, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Teardown)
	defer cancel()
	h.Teardown(ctx)
}
