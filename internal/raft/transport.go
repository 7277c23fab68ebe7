package raft

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	hraft "github.com/hashicorp/raft"
)

// Transport is an engine transport that can be closed by its owner.
type Transport interface {
	hraft.Transport
	Close() error
}

// TransportFactory creates the transport a node binds to addr when it starts.
type TransportFactory func(addr Endpoint, logger hclog.Logger) (Transport, error)

// Default settings for TCP transports.
const (
	DefaultMaxPool          = 3
	DefaultTransportTimeout = 2 * time.Second
)

// TCPTransport returns a factory for engine network transports over TCP.
func TCPTransport(maxPool int, timeout time.Duration) TransportFactory {
	return func(addr Endpoint, logger hclog.Logger) (Transport, error) {
		t, err := hraft.NewTCPTransportWithLogger(addr.String(), nil, maxPool, timeout, logger.Named("transport"))
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", addr, err)
		}
		return t, nil
	}
}

// InmemNetwork connects in-memory transports created by its factory. Every
// transport that joins is wired to every other live one; closing a
// transport disconnects it from all peers.
type InmemNetwork struct {
	transports map[hraft.ServerAddress]*hraft.InmemTransport
	mu         sync.Mutex
}

// NewInmemNetwork creates a new in-memory network.
func NewInmemNetwork() *InmemNetwork {
	return &InmemNetwork{
		transports: make(map[hraft.ServerAddress]*hraft.InmemTransport),
	}
}

// Factory returns a TransportFactory that joins this network.
func (n *InmemNetwork) Factory() TransportFactory {
	return func(addr Endpoint, _ hclog.Logger) (Transport, error) {
		return n.join(addr)
	}
}

// Len returns the number of live transports.
func (n *InmemNetwork) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.transports)
}

func (n *InmemNetwork) join(addr Endpoint) (Transport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	local := hraft.ServerAddress(addr.String())
	if _, ok := n.transports[local]; ok {
		return nil, fmt.Errorf("bind %s: address already in use", addr)
	}

	_, t := hraft.NewInmemTransport(local)
	for peerAddr, peer := range n.transports {
		t.Connect(peerAddr, peer)
		peer.Connect(local, t)
	}
	n.transports[local] = t

	return &inmemTransport{InmemTransport: t, network: n}, nil
}

func (n *InmemNetwork) leave(t *hraft.InmemTransport) {
	n.mu.Lock()
	defer n.mu.Unlock()

	local := t.LocalAddr()
	if n.transports[local] != t {
		return
	}
	delete(n.transports, local)
	for _, peer := range n.transports {
		peer.Disconnect(local)
	}
	t.DisconnectAll()
}

// inmemTransport leaves its network on Close.
type inmemTransport struct {
	*hraft.InmemTransport
	network *InmemNetwork
	once    sync.Once
}

func (t *inmemTransport) Close() error {
	t.once.Do(func() { t.network.leave(t.InmemTransport) })
	return nil
}

// TransportByName resolves a transport factory. The in-memory transport
// joins network, which must be shared by all nodes of one cluster.
func TransportByName(name string, network *InmemNetwork) (TransportFactory, error) {
	switch name {
	case "tcp":
		return TCPTransport(DefaultMaxPool, DefaultTransportTimeout), nil
	case "inmem":
		if network == nil {
			network = NewInmemNetwork()
		}
		return network.Factory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
	}
}
