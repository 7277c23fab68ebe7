package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// MembershipController grows a running cluster.
type MembershipController struct {
	h *Harness
}

// AddNode provisions and starts one more node, has the leader add it as a
// voter, and waits until the new node knows the leader. Every step is
// bounded by ctx. A node that fails to join is kept as an orphan and
// deleted at teardown; if it was already made a voter, it is removed from
// the configuration again.
func (m *MembershipController) AddNode(ctx context.Context) (*Node, error) {
	h := m.h

	if h.tracker.Leader() == nil {
		return nil, newError("add node", ErrNoLeaderElected, nil)
	}

	spec, err := h.alloc.Next()
	if err != nil {
		return nil, err
	}

	peer := spec.Peer()
	peers := append(h.Peers(), peer)

	n, err := h.prov.Provision(spec, peers, false)
	if err != nil {
		return nil, err
	}

	fail := func(kind, cause error) (*Node, error) {
		h.mu.Lock()
		h.orphans = append(h.orphans, n)
		h.mu.Unlock()
		h.metrics.MembershipChanges.WithLabelValues(resultFailure).Inc()
		h.logger.Warn("node failed to join", "node", spec.ID, "error", cause)
		return nil, newError("add node", kind, cause)
	}

	if err := h.startNodes(ctx, []*Node{n}); err != nil {
		var herr *Error
		if errors.As(err, &herr) {
			return fail(herr.Kind, herr.Err)
		}
		return fail(ErrStartupFailure, err)
	}

	if err := m.addVoter(ctx, peer); err != nil {
		if ctx.Err() != nil {
			// The change may still commit after the wait gave up.
			m.removeVoter(spec.ID)
			return fail(ErrStartupTimeout, err)
		}
		return fail(ErrStartupFailure, err)
	}

	if err := waitFor(ctx, func() bool {
		_, ok := n.LeaderEndpoint()
		return ok
	}); err != nil {
		m.removeVoter(spec.ID)
		return fail(ErrStartupTimeout, fmt.Errorf("%s never learned the leader: %w", spec.ID, err))
	}

	for _, existing := range h.Nodes() {
		existing.Raft().AddPeer(peer)
	}

	h.mu.Lock()
	h.nodes = append(h.nodes, n)
	members := len(h.nodes)
	h.mu.Unlock()

	h.tracker.Attach(n)
	h.metrics.Members.Set(float64(members))
	h.metrics.MembershipChanges.WithLabelValues(resultSuccess).Inc()
	h.logger.Info("node joined", "node", spec.ID, "members", members)
	return n, nil
}

// removeVoter takes id out of the configuration through the tracked
// leader so a node that never joined does not count towards quorum. It
// runs on its own deadline because the caller's has usually expired.
func (m *MembershipController) removeVoter(id string) {
	h := m.h
	leader := h.tracker.Leader()
	if leader == nil {
		h.logger.Warn("cannot remove voter without a leader", "node", id)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.RequestTimeout)
	defer cancel()
	if err := leader.Raft().RemoveServer(ctx, id); err != nil {
		h.logger.Warn("failed to remove voter", "node", id, "leader", leader.ID(), "error", err)
	}
}

// addVoter asks the tracked leader to add peer, following leadership if it
// moves while the request is retried.
func (m *MembershipController) addVoter(ctx context.Context, peer raft.Peer) error {
	h := m.h
	for {
		leader := h.tracker.Leader()
		if leader == nil {
			return ErrNoLeaderElected
		}

		err := leader.Raft().AddVoter(ctx, peer)
		if err == nil {
			return nil
		}
		if !errors.Is(err, raft.ErrNotLeader) && !errors.Is(err, raft.ErrNotRunning) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
