package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/quorum/internal/client"
	"github.com/KilimcininKorOglu/quorum/internal/cluster"
	"github.com/KilimcininKorOglu/quorum/internal/config"
)

type runOptions struct {
	cluster  clusterFlags
	key      string
	value    string
	failover bool
	addNode  bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a cluster scenario once",
		Long: `Provision and start a cluster, write a key through a client and read it
back, optionally stop the leader and add a node, then tear the cluster down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := prepare(cmd, global, &opts.cluster)
			if err != nil {
				return err
			}
			return runScenario(cmd, cfg, opts)
		},
	}

	opts.cluster.bind(cmd)
	fs := cmd.Flags()
	fs.StringVar(&opts.key, "key", "greeting", "key to write")
	fs.StringVar(&opts.value, "value", "hello", "value to write")
	fs.BoolVar(&opts.failover, "failover", false, "stop the leader and wait for a new one")
	fs.BoolVar(&opts.addNode, "add-node", false, "add a node to the running cluster")
	return cmd
}

func runScenario(cmd *cobra.Command, cfg *config.Config, opts *runOptions) error {
	ctx := cmd.Context()
	logger := newLogger(cmd, cfg.Logging)

	h, err := bringUp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tearDown(h, cfg)

	printf(cmd, "cluster started: %d nodes, leader %s\n", len(h.Nodes()), h.Leader().ID())

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.ClientConnect)
	c, err := h.CreateClient(connectCtx)
	cancel()
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Failover)
	err = writeAndCheck(opCtx, c, opts.key, opts.value)
	cancel()
	if err != nil {
		return err
	}
	printf(cmd, "wrote %s=%s\n", opts.key, opts.value)

	if opts.failover {
		if err := failover(ctx, cmd, h, c, cfg, opts.key, opts.value); err != nil {
			return err
		}
	}

	if opts.addNode {
		addCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.AddNode)
		n, err := h.Membership().AddNode(addCtx)
		cancel()
		if err != nil {
			return err
		}
		printf(cmd, "added %s at %s, members %d\n", n.ID(), n.ServerEndpoint(), len(h.Nodes()))
	}
	return nil
}

func writeAndCheck(ctx context.Context, c *client.Client, key, value string) error {
	if _, err := c.Put(ctx, key, value); err != nil {
		return err
	}
	return checkValue(ctx, c, key, value)
}

func checkValue(ctx context.Context, c *client.Client, key, want string) error {
	got, found, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found || got != want {
		return fmt.Errorf("read %s: got %q (found %v), want %q", key, got, found, want)
	}
	return nil
}

func failover(ctx context.Context, cmd *cobra.Command, h *cluster.Harness, c *client.Client, cfg *config.Config, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Failover)
	defer cancel()

	old := h.Leader()
	if err := h.Failover().StopLeader(ctx); err != nil {
		return err
	}
	printf(cmd, "leader moved from %s to %s\n", old.ID(), h.Leader().ID())

	if err := checkValue(ctx, c, key, value); err != nil {
		return fmt.Errorf("after failover: %w", err)
	}
	printf(cmd, "read %s=%s after failover\n", key, value)
	return nil
}
