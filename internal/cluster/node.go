package cluster

import (
	"errors"
	"fmt"
	"sync"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
	"github.com/KilimcininKorOglu/quorum/internal/server"
)

// Node is one cluster member: an engine node plus the client endpoint in
// front of it. The harness owns every Node it creates.
type Node struct {
	spec   NodeSpec
	raft   *raft.Node
	server *server.Server

	// lifecycle serializes Start, Stop and Delete so a stop issued while a
	// start is still in flight cannot leave the endpoint running.
	lifecycle sync.Mutex
}

// Spec returns the node's placement.
func (n *Node) Spec() NodeSpec {
	return n.spec
}

// ID returns the node identifier.
func (n *Node) ID() string {
	return n.spec.ID
}

// Index returns the node's position in the harness.
func (n *Node) Index() int {
	return n.spec.Index
}

// Raft returns the engine node.
func (n *Node) Raft() *raft.Node {
	return n.raft
}

// ServerEndpoint returns the engine address.
func (n *Node) ServerEndpoint() raft.Endpoint {
	return n.spec.ServerAddress
}

// ClientEndpoint returns the client endpoint address.
func (n *Node) ClientEndpoint() raft.Endpoint {
	return n.spec.ClientAddress
}

// Start starts the engine, then the client endpoint.
func (n *Node) Start() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	if err := n.raft.Start(); err != nil {
		return fmt.Errorf("%s: %w", n.spec.ID, err)
	}
	if err := n.server.Start(); err != nil {
		n.raft.Stop()
		return fmt.Errorf("%s: client endpoint: %w", n.spec.ID, err)
	}
	return nil
}

// Stop stops the client endpoint, then the engine. Storage is kept.
func (n *Node) Stop() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	return errors.Join(n.server.Stop(), n.raft.Stop())
}

// Delete stops the node and removes its storage directory.
func (n *Node) Delete() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	return errors.Join(n.server.Stop(), n.raft.Delete())
}

// Running reports whether the engine is running.
func (n *Node) Running() bool {
	return n.raft.Running()
}

// Status returns the role the node currently holds.
func (n *Node) Status() raft.Status {
	return n.raft.Status()
}

// LeaderEndpoint returns the engine address of the leader this node knows.
func (n *Node) LeaderEndpoint() (raft.Endpoint, bool) {
	return n.raft.LeaderEndpoint()
}

// OnStatusChange registers fn for status reports from this node.
func (n *Node) OnStatusChange(fn func(raft.Status)) *raft.Subscription {
	return n.raft.OnStatusChange(fn)
}

// Clients returns the number of open client connections.
func (n *Node) Clients() int {
	return n.server.Clients()
}
