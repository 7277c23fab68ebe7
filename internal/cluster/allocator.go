package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// NodeSpec is the immutable placement of one node.
type NodeSpec struct {
	Index         int
	ID            string
	ServerAddress raft.Endpoint
	ClientAddress raft.Endpoint
	StoragePath   string
}

// Peer returns the membership entry for the node.
func (s NodeSpec) Peer() raft.Peer {
	return raft.Peer{ID: s.ID, Server: s.ServerAddress, Client: s.ClientAddress}
}

// NodeID returns the identifier of the node at index.
func NodeID(index int) string {
	return fmt.Sprintf("node-%d", index)
}

// Allocator derives node endpoints and storage directories from an index.
// Node i serves the engine on basePort+i and clients on
// basePort+clientOffset+i, and stores its data in baseDir/node-i.
//
// Next hands out indexes from a cursor that only moves forward until
// Reset, so an index is never given to two nodes of one run.
type Allocator struct {
	host         string
	basePort     int
	clientOffset int
	baseDir      string

	mu   sync.Mutex
	next int
}

// NewAllocator creates an allocator.
func NewAllocator(host string, basePort, clientOffset int, baseDir string) *Allocator {
	return &Allocator{
		host:         host,
		basePort:     basePort,
		clientOffset: clientOffset,
		baseDir:      baseDir,
	}
}

// EndpointFor returns the engine endpoint of node index.
func (a *Allocator) EndpointFor(index int) raft.Endpoint {
	return raft.Endpoint{Host: a.host, Port: a.basePort + index}
}

// ClientEndpointFor returns the client endpoint of node index.
func (a *Allocator) ClientEndpointFor(index int) raft.Endpoint {
	return raft.Endpoint{Host: a.host, Port: a.basePort + a.clientOffset + index}
}

// StoragePathFor returns the storage directory of node index.
func (a *Allocator) StoragePathFor(index int) string {
	return filepath.Join(a.baseDir, NodeID(index))
}

// BaseDir returns the directory node storage lives under.
func (a *Allocator) BaseDir() string {
	return a.baseDir
}

// Allocate computes the NodeSpec of node index and prepares an empty storage
// directory for it. Anything left there by an earlier run is removed.
// Allocate does not move the cursor.
func (a *Allocator) Allocate(index int) (NodeSpec, error) {
	if index < 0 {
		return NodeSpec{}, newError("allocate", ErrProvisioning, fmt.Errorf("negative index %d", index))
	}

	path := a.StoragePathFor(index)
	if err := cleanDir(path); err != nil {
		return NodeSpec{}, newError("allocate", ErrProvisioning, err)
	}

	return NodeSpec{
		Index:         index,
		ID:            NodeID(index),
		ServerAddress: a.EndpointFor(index),
		ClientAddress: a.ClientEndpointFor(index),
		StoragePath:   path,
	}, nil
}

// Next allocates the index under the cursor and advances it. A failed
// allocation leaves the cursor in place.
func (a *Allocator) Next() (NodeSpec, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	spec, err := a.Allocate(a.next)
	if err != nil {
		return NodeSpec{}, err
	}
	a.next++
	return spec, nil
}

// Allocated returns how many indexes Next has handed out since the last
// Reset.
func (a *Allocator) Allocated() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Reset rewinds the cursor to index 0. Call it only once every node
// allocated so far is gone.
func (a *Allocator) Reset() {
	a.mu.Lock()
	a.next = 0
	a.mu.Unlock()
}

// cleanDir creates dir if needed and removes everything inside it.
func cleanDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("clean %s: %w", dir, err)
		}
	}
	return nil
}
