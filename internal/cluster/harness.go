package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/quorum/internal/client"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// pollInterval is how often the harness checks for a leader.
const pollInterval = 10 * time.Millisecond

// Harness provisions a cluster, starts it, hands out clients and tears it
// all down again. Setup, membership and teardown calls must not run
// concurrently with each other.
type Harness struct {
	opts    Options
	logger  logging.Logger
	alloc   *Allocator
	prov    *Provisioner
	tracker *LeaderTracker
	metrics *Metrics

	failover   *FailoverDriver
	membership *MembershipController

	mu      sync.RWMutex
	nodes   []*Node
	orphans []*Node
	clients []*client.Client

	// pending counts lifecycle calls still running after their caller
	// stopped waiting. Teardown drains it.
	pending sync.WaitGroup
}

// New creates a harness from opts.
func New(opts Options) (*Harness, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, newError("new", ErrProvisioning, err)
	}

	prov, err := NewProvisioner(opts.Factories, opts.Timings, opts.RequestTimeout, opts.Logger)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	h := &Harness{
		opts:    opts,
		logger:  opts.Logger,
		alloc:   NewAllocator(opts.Host, opts.BasePort, opts.ClientPortOffset, opts.BaseDir),
		prov:    prov,
		tracker: NewLeaderTracker(metrics.LeaderChanges.Inc),
		metrics: metrics,
	}
	h.failover = &FailoverDriver{h: h}
	h.membership = &MembershipController{h: h}
	return h, nil
}

// ProvisionNodes allocates and builds count nodes. Every node is given the
// full membership and bootstraps with it. Nothing is started. Indexes come
// from the allocator cursor, so ports held by nodes that failed to join
// are skipped.
func (h *Harness) ProvisionNodes(count int) error {
	if count <= 0 {
		return newError("provision", ErrProvisioning, fmt.Errorf("invalid node count %d", count))
	}

	specs := make([]NodeSpec, 0, count)
	for i := 0; i < count; i++ {
		spec, err := h.alloc.Next()
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	peers := h.Peers()
	for _, spec := range specs {
		peers = append(peers, spec.Peer())
	}

	nodes := make([]*Node, 0, count)
	for _, spec := range specs {
		n, err := h.prov.Provision(spec, peers, true)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
	}

	h.mu.Lock()
	h.nodes = append(h.nodes, nodes...)
	members := len(h.nodes)
	h.mu.Unlock()

	h.metrics.Members.Set(float64(members))
	h.logger.Info("nodes provisioned", "count", count, "members", members)
	return nil
}

// Start starts every provisioned node concurrently and waits until a
// leader is observed. ctx bounds the whole call.
func (h *Harness) Start(ctx context.Context) error {
	nodes := h.Nodes()
	if len(nodes) == 0 {
		return newError("start", ErrStartupFailure, errors.New("no nodes provisioned"))
	}

	begin := time.Now()
	for _, n := range nodes {
		h.tracker.Attach(n)
	}

	if err := h.startNodes(ctx, nodes); err != nil {
		result := resultFailure
		if errors.Is(err, ErrStartupTimeout) {
			result = resultTimeout
		}
		h.metrics.recordStartup(result, time.Since(begin))
		return err
	}

	if err := h.awaitLeader(ctx); err != nil {
		h.metrics.recordStartup(resultTimeout, time.Since(begin))
		return err
	}

	d := time.Since(begin)
	h.metrics.recordStartup(resultSuccess, d)
	h.logger.Info("cluster started", "nodes", len(nodes), "leader", h.tracker.Leader().ID(), "duration", d)
	return nil
}

// startNodes starts nodes concurrently and waits for all of them or ctx.
// Starts still running when ctx expires are left to finish and drained by
// Teardown.
func (h *Harness) startNodes(ctx context.Context, nodes []*Node) error {
	var g errgroup.Group
	for _, n := range nodes {
		g.Go(n.Start)
	}

	done := make(chan error, 1)
	h.goTracked(func() { done <- g.Wait() })

	select {
	case err := <-done:
		if err != nil {
			return newError("start", ErrStartupFailure, err)
		}
		return nil
	case <-ctx.Done():
		return newError("start", ErrStartupTimeout, ctx.Err())
	}
}

// awaitLeader polls until a node reports leadership or ctx is done.
func (h *Harness) awaitLeader(ctx context.Context) error {
	err := waitFor(ctx, func() bool {
		if l := h.tracker.Leader(); l != nil && l.Status() == raft.StatusLeader {
			return true
		}
		for _, n := range h.Nodes() {
			if h.tracker.Observe(n) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return newError("start", ErrNoLeaderElected, err)
	}
	return nil
}

// CreateClient connects a new client to every running node. The client is
// closed by Teardown.
func (h *Harness) CreateClient(ctx context.Context) (*client.Client, error) {
	var endpoints []raft.Endpoint
	for _, n := range h.Nodes() {
		if n.Running() {
			endpoints = append(endpoints, n.ClientEndpoint())
		}
	}

	c, err := client.New(endpoints, client.Options{
		Codec:          h.prov.Codec(),
		Logger:         h.logger.Named("client"),
		RequestTimeout: h.opts.RequestTimeout,
	})
	if err != nil {
		return nil, newError("create client", ErrClientConnect, err)
	}

	if err := c.Connect(ctx); err != nil {
		c.Close(context.Background())
		return nil, newError("create client", ErrClientConnect, err)
	}

	h.mu.Lock()
	h.clients = append(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.Clients.Set(float64(count))
	return c, nil
}

// Teardown closes every client, then stops and deletes every node,
// including nodes that failed to join. Failures are logged and counted,
// never returned. The harness can be provisioned again afterwards; a
// second Teardown does nothing.
func (h *Harness) Teardown(ctx context.Context) {
	h.mu.Lock()
	clients, nodes, orphans := h.clients, h.nodes, h.orphans
	h.clients, h.nodes, h.orphans = nil, nil, nil
	h.mu.Unlock()

	h.tracker.DetachAll()

	var (
		errMu sync.Mutex
		errs  []error
	)
	collect := func(err error) {
		if err == nil {
			return
		}
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	}

	var cg errgroup.Group
	for _, c := range clients {
		c := c
		cg.Go(func() error {
			collect(c.Close(ctx))
			return nil
		})
	}
	cg.Wait()

	var ng errgroup.Group
	for _, n := range append(nodes, orphans...) {
		n := n
		ng.Go(func() error {
			if err := n.Delete(); err != nil {
				collect(fmt.Errorf("%s: %w", n.ID(), err))
			}
			return nil
		})
	}
	done := make(chan struct{})
	h.goTracked(func() {
		ng.Wait()
		close(done)
	})

	select {
	case <-done:
	case <-ctx.Done():
		collect(fmt.Errorf("nodes: %w", ctx.Err()))
	}

	if err := h.drain(ctx); err != nil {
		collect(fmt.Errorf("pending operations: %w", err))
	}

	h.alloc.Reset()
	h.tracker.Reset()
	h.metrics.Members.Set(0)
	h.metrics.Clients.Set(0)

	errMu.Lock()
	defer errMu.Unlock()
	if len(errs) > 0 {
		err := newError("teardown", ErrTeardown, errors.Join(errs...))
		h.metrics.TeardownErrors.Add(float64(len(errs)))
		h.logger.Warn("teardown finished with errors", "error", err)
		return
	}
	if len(nodes)+len(orphans)+len(clients) > 0 {
		h.logger.Info("cluster torn down", "nodes", len(nodes)+len(orphans), "clients", len(clients))
	}
}

// drain waits for tracked goroutines or ctx.
func (h *Harness) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// goTracked runs fn on its own goroutine, counted until it returns.
func (h *Harness) goTracked(fn func()) {
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		fn()
	}()
}

// waitFor polls cond until it holds or ctx is done.
func waitFor(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Nodes returns the tracked nodes in index order.
func (h *Harness) Nodes() []*Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Node(nil), h.nodes...)
}

// Node returns the node at index i, or nil.
func (h *Harness) Node(i int) *Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.nodes) {
		return nil
	}
	return h.nodes[i]
}

// Orphans returns nodes that failed to join, in the order they failed.
// They are not members and are deleted by Teardown.
func (h *Harness) Orphans() []*Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Node(nil), h.orphans...)
}

// Clients returns the tracked clients.
func (h *Harness) Clients() []*client.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*client.Client(nil), h.clients...)
}

// Leader returns the tracked leader, or nil.
func (h *Harness) Leader() *Node {
	return h.tracker.Leader()
}

// Peers returns the membership entries of the tracked nodes.
func (h *Harness) Peers() []raft.Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	peers := make([]raft.Peer, len(h.nodes))
	for i, n := range h.nodes {
		peers[i] = n.spec.Peer()
	}
	return peers
}

// Tracker returns the leader tracker.
func (h *Harness) Tracker() *LeaderTracker {
	return h.tracker
}

// Allocator returns the address allocator.
func (h *Harness) Allocator() *Allocator {
	return h.alloc
}

// Metrics returns the harness metrics.
func (h *Harness) Metrics() *Metrics {
	return h.metrics
}

// Failover returns the failover driver.
func (h *Harness) Failover() *FailoverDriver {
	return h.failover
}

// Membership returns the membership controller.
func (h *Harness) Membership() *MembershipController {
	return h.membership
}
