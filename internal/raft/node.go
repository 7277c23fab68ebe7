package raft

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	hraft "github.com/hashicorp/raft"
	"golang.org/x/exp/slices"

	"github.com/KilimcininKorOglu/quorum/internal/logging"
)

// observerBuffer bounds pending status observations per node. The engine
// drops observations rather than block when it is full.
const observerBuffer = 64

// Node wraps one engine instance together with the stores and transport it
// owns. Stop releases everything Start opened; a stopped node can be
// started again and picks up whatever state its storage kept.
type Node struct {
	cfg    NodeConfig
	logger logging.Logger

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu        sync.RWMutex
	raft      *hraft.Raft
	transport Transport
	stores    *Stores
	observer  *hraft.Observer
	stopCh    chan struct{}
	done      chan struct{}

	peersMu sync.RWMutex
	peers   []Peer

	subsMu sync.Mutex
	subs   []*listener
}

type listener struct {
	fn func(Status)
}

// Subscription is a registered status listener.
type Subscription struct {
	node *Node
	l    *listener
	once sync.Once
}

// Cancel removes the listener. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.node.unsubscribe(s.l) })
}

// Node returns the node the subscription is attached to.
func (s *Subscription) Node() *Node {
	return s.node
}

// NewNode creates a node that is not yet started.
func NewNode(cfg NodeConfig) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	peers := slices.Clone(cfg.Peers)
	if slices.IndexFunc(peers, func(p Peer) bool { return p.ID == cfg.ID }) < 0 {
		peers = append(peers, Peer{ID: cfg.ID, Server: cfg.Server, Client: cfg.Client})
	}

	return &Node{
		cfg:    cfg,
		logger: cfg.Logger.WithFields("node", cfg.ID),
		peers:  peers,
	}, nil
}

// ID returns the node identifier.
func (n *Node) ID() string {
	return n.cfg.ID
}

// ServerEndpoint returns the address the engine transport binds to.
func (n *Node) ServerEndpoint() Endpoint {
	return n.cfg.Server
}

// ClientEndpoint returns the address the node serves clients on.
func (n *Node) ClientEndpoint() Endpoint {
	return n.cfg.Client
}

// DataDir returns the node's storage directory.
func (n *Node) DataDir() string {
	return n.cfg.DataDir
}

// StateMachine returns the replicated state machine.
func (n *Node) StateMachine() StateMachine {
	return n.cfg.StateMachine
}

// Start opens storage, binds the transport and starts the engine. Calling
// Start on a running node is a no-op.
func (n *Node) Start() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	if n.Running() {
		return nil
	}

	hl := logging.Hclog(n.logger)

	stores, err := n.cfg.Storage(n.cfg.DataDir, hl)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	trans, err := n.cfg.Transport(n.cfg.Server, hl)
	if err != nil {
		stores.Close()
		return fmt.Errorf("open transport: %w", err)
	}

	fail := func(err error) error {
		trans.Close()
		stores.Close()
		return err
	}

	conf := n.cfg.engineConfig(n.logger.Named("engine"))

	if n.cfg.Bootstrap {
		existing, err := hraft.HasExistingState(stores.Logs, stores.Stable, stores.Snapshots)
		if err != nil {
			return fail(fmt.Errorf("inspect state: %w", err))
		}
		if !existing {
			err := hraft.BootstrapCluster(conf, stores.Logs, stores.Stable, stores.Snapshots, trans, n.cfg.configuration())
			if err != nil {
				return fail(fmt.Errorf("bootstrap: %w", err))
			}
		}
	}

	r, err := hraft.NewRaft(conf, n.cfg.StateMachine, stores.Logs, stores.Stable, stores.Snapshots, trans)
	if err != nil {
		return fail(fmt.Errorf("start engine: %w", err))
	}

	obsCh := make(chan hraft.Observation, observerBuffer)
	observer := hraft.NewObserver(obsCh, false, func(o *hraft.Observation) bool {
		_, ok := o.Data.(hraft.RaftState)
		return ok
	})
	r.RegisterObserver(observer)

	stopCh := make(chan struct{})
	done := make(chan struct{})
	go n.dispatch(obsCh, stopCh, done)

	n.mu.Lock()
	n.raft = r
	n.transport = trans
	n.stores = stores
	n.observer = observer
	n.stopCh = stopCh
	n.done = done
	n.mu.Unlock()

	n.logger.Info("node started",
		"server", n.cfg.Server.String(),
		"bootstrap", n.cfg.Bootstrap,
	)
	return nil
}

// Stop shuts the engine down and releases the transport and stores.
// Stopping a node that is not running is a no-op.
func (n *Node) Stop() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	n.mu.Lock()
	r := n.raft
	trans, stores, observer := n.transport, n.stores, n.observer
	stopCh, done := n.stopCh, n.done
	n.raft, n.transport, n.stores, n.observer = nil, nil, nil, nil
	n.mu.Unlock()

	if r == nil {
		return nil
	}

	r.DeregisterObserver(observer)
	shutdownErr := r.Shutdown().Error()
	close(stopCh)
	<-done

	err := errors.Join(shutdownErr, trans.Close(), stores.Close())
	if err != nil {
		n.logger.Warn("node stopped with errors", "error", err)
		return err
	}
	n.logger.Info("node stopped")
	return nil
}

// Delete stops the node if needed and removes its storage directory.
func (n *Node) Delete() error {
	stopErr := n.Stop()
	if n.cfg.DataDir == "" {
		return stopErr
	}
	return errors.Join(stopErr, os.RemoveAll(n.cfg.DataDir))
}

// Running reports whether the engine has been started and not stopped.
func (n *Node) Running() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.raft != nil
}

func (n *Node) engine() (*hraft.Raft, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.raft == nil {
		return nil, ErrNotRunning
	}
	return n.raft, nil
}

func (n *Node) leaderEngine(ctx context.Context) (*hraft.Raft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := n.engine()
	if err != nil {
		return nil, err
	}
	if r.State() != hraft.Leader {
		return nil, ErrNotLeader
	}
	return r, nil
}

// Status returns the role the node currently holds.
func (n *Node) Status() Status {
	r, err := n.engine()
	if err != nil {
		return StatusInactive
	}
	return statusOf(r.State())
}

func statusOf(state hraft.RaftState) Status {
	switch state {
	case hraft.Leader:
		return StatusLeader
	case hraft.Candidate:
		return StatusCandidate
	case hraft.Follower:
		return StatusFollower
	default:
		return StatusInactive
	}
}

// LeaderEndpoint returns the server address of the leader this node knows.
func (n *Node) LeaderEndpoint() (Endpoint, bool) {
	r, err := n.engine()
	if err != nil {
		return Endpoint{}, false
	}
	addr, _ := r.LeaderWithID()
	if addr == "" {
		return Endpoint{}, false
	}
	ep, err := ParseEndpoint(string(addr))
	if err != nil {
		return Endpoint{}, false
	}
	return ep, true
}

// LeaderClientEndpoint returns the client address of the leader this node
// knows, looked up in its peer list.
func (n *Node) LeaderClientEndpoint() (Endpoint, bool) {
	r, err := n.engine()
	if err != nil {
		return Endpoint{}, false
	}
	_, id := r.LeaderWithID()
	if id == "" {
		return Endpoint{}, false
	}
	p, ok := n.peer(string(id))
	if !ok || p.Client.IsZero() {
		return Endpoint{}, false
	}
	return p.Client, true
}

// OnStatusChange registers fn to be called with every status the engine
// reports. Listeners run on the node's dispatcher goroutine in
// registration order and must not block or call Stop.
func (n *Node) OnStatusChange(fn func(Status)) *Subscription {
	l := &listener{fn: fn}
	n.subsMu.Lock()
	n.subs = append(n.subs, l)
	n.subsMu.Unlock()
	return &Subscription{node: n, l: l}
}

func (n *Node) unsubscribe(l *listener) {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	if i := slices.Index(n.subs, l); i >= 0 {
		n.subs = slices.Delete(n.subs, i, i+1)
	}
}

// Listeners returns the number of registered status listeners.
func (n *Node) Listeners() int {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	return len(n.subs)
}

func (n *Node) dispatch(obsCh <-chan hraft.Observation, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case o := <-obsCh:
			state, ok := o.Data.(hraft.RaftState)
			if !ok {
				continue
			}
			status := statusOf(state)
			n.logger.Debug("status changed", "status", status.String())
			n.notify(status)
		case <-stopCh:
			return
		}
	}
}

func (n *Node) notify(status Status) {
	n.subsMu.Lock()
	subs := slices.Clone(n.subs)
	n.subsMu.Unlock()

	for _, l := range subs {
		l.fn(status)
	}
}

// Apply replicates cmd through the log and returns the state machine's
// response. It fails with ErrNotLeader on any node but the leader.
func (n *Node) Apply(ctx context.Context, cmd []byte) ([]byte, error) {
	r, err := n.leaderEngine(ctx)
	if err != nil {
		return nil, err
	}

	f := r.Apply(cmd, timeoutOf(ctx))
	if err := wait(ctx, f); err != nil {
		return nil, engineError(err)
	}

	switch resp := f.Response().(type) {
	case nil:
		return nil, nil
	case error:
		return nil, resp
	case []byte:
		return resp, nil
	default:
		return nil, fmt.Errorf("raft: unexpected response type %T", resp)
	}
}

// Query answers a read on the leader once every entry committed before
// the call has been applied.
func (n *Node) Query(ctx context.Context, query []byte) ([]byte, error) {
	r, err := n.leaderEngine(ctx)
	if err != nil {
		return nil, err
	}
	if err := wait(ctx, r.Barrier(timeoutOf(ctx))); err != nil {
		return nil, engineError(err)
	}
	return n.cfg.StateMachine.Query(query)
}

// AddVoter asks the leader to add p to the cluster as a voting member and
// records p in the local peer list.
func (n *Node) AddVoter(ctx context.Context, p Peer) error {
	r, err := n.leaderEngine(ctx)
	if err != nil {
		return err
	}
	f := r.AddVoter(hraft.ServerID(p.ID), hraft.ServerAddress(p.Server.String()), 0, timeoutOf(ctx))
	if err := wait(ctx, f); err != nil {
		return engineError(err)
	}
	n.AddPeer(p)
	n.logger.Info("voter added", "peer", p.ID, "server", p.Server.String())
	return nil
}

// RemoveServer asks the leader to drop the member id from the cluster and
// forgets its peer entry. Removing an unknown id is not an error.
func (n *Node) RemoveServer(ctx context.Context, id string) error {
	r, err := n.leaderEngine(ctx)
	if err != nil {
		return err
	}
	f := r.RemoveServer(hraft.ServerID(id), 0, timeoutOf(ctx))
	if err := wait(ctx, f); err != nil {
		return engineError(err)
	}

	n.peersMu.Lock()
	n.peers = slices.DeleteFunc(n.peers, func(p Peer) bool { return p.ID == id })
	n.peersMu.Unlock()

	n.logger.Info("server removed", "peer", id)
	return nil
}

// Voters returns the ids of the voting members in the latest
// configuration this node knows about.
func (n *Node) Voters() ([]string, error) {
	r, err := n.engine()
	if err != nil {
		return nil, err
	}
	f := r.GetConfiguration()
	if err := f.Error(); err != nil {
		return nil, engineError(err)
	}
	var ids []string
	for _, s := range f.Configuration().Servers {
		if s.Suffrage == hraft.Voter {
			ids = append(ids, string(s.ID))
		}
	}
	return ids, nil
}

// AddPeer records p so its client address can be resolved. It does not
// change cluster membership.
func (n *Node) AddPeer(p Peer) {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	if i := slices.IndexFunc(n.peers, func(q Peer) bool { return q.ID == p.ID }); i >= 0 {
		n.peers[i] = p
		return
	}
	n.peers = append(n.peers, p)
}

// Peers returns the known peers in the order they were learned.
func (n *Node) Peers() []Peer {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()
	return slices.Clone(n.peers)
}

func (n *Node) peer(id string) (Peer, bool) {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()
	i := slices.IndexFunc(n.peers, func(p Peer) bool { return p.ID == id })
	if i < 0 {
		return Peer{}, false
	}
	return n.peers[i], true
}

// Stats returns engine statistics, or nil when the node is not running.
func (n *Node) Stats() map[string]string {
	r, err := n.engine()
	if err != nil {
		return nil
	}
	return r.Stats()
}

// timeoutOf converts the context deadline into an engine enqueue timeout.
// Zero means no timeout.
func timeoutOf(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Nanosecond
}

// wait blocks until f resolves or ctx is done. The future keeps running
// after ctx expires; the engine resolves it on shutdown at the latest.
func wait(ctx context.Context, f hraft.Future) error {
	errCh := make(chan error, 1)
	go func() { errCh <- f.Error() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func engineError(err error) error {
	switch {
	case errors.Is(err, hraft.ErrNotLeader),
		errors.Is(err, hraft.ErrLeadershipLost),
		errors.Is(err, hraft.ErrLeadershipTransferInProgress):
		return ErrNotLeader
	case errors.Is(err, hraft.ErrRaftShutdown):
		return ErrNotRunning
	default:
		return err
	}
}
