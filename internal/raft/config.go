package raft

import (
	"fmt"
	"time"

	hraft "github.com/hashicorp/raft"

	"github.com/KilimcininKorOglu/quorum/internal/logging"
)

// StateMachine is the replicated application state of a node.
type StateMachine interface {
	hraft.FSM
	// Query answers a read-only request from local state.
	Query(data []byte) ([]byte, error)
}

// NodeConfig holds configuration for a Node.
type NodeConfig struct {
	ID      string
	Server  Endpoint
	Client  Endpoint
	DataDir string

	// Peers is the membership the node starts with, itself included.
	Peers []Peer
	// Bootstrap seeds the stores with Peers as the initial configuration.
	// Every bootstrapping node must be given the same Peers.
	Bootstrap bool

	HeartbeatTimeout   time.Duration
	ElectionTimeout    time.Duration
	LeaderLeaseTimeout time.Duration
	CommitTimeout      time.Duration
	SnapshotThreshold  uint64
	TrailingLogs       uint64

	Transport    TransportFactory
	Storage      StorageFactory
	StateMachine StateMachine
	Logger       logging.Logger
}

// Validate checks that the configuration can build a node.
func (c *NodeConfig) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: node id is required", ErrInvalidConfig)
	case c.Server.IsZero():
		return fmt.Errorf("%w: server address is required", ErrInvalidConfig)
	case c.Transport == nil:
		return fmt.Errorf("%w: transport factory is required", ErrInvalidConfig)
	case c.Storage == nil:
		return fmt.Errorf("%w: storage factory is required", ErrInvalidConfig)
	case c.StateMachine == nil:
		return fmt.Errorf("%w: state machine is required", ErrInvalidConfig)
	}

	if c.Bootstrap {
		found := false
		for _, p := range c.Peers {
			if p.ID == c.ID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: bootstrap peers must include %s", ErrInvalidConfig, c.ID)
		}
	}

	if err := hraft.ValidateConfig(c.engineConfig(nil)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// engineConfig translates c into the engine's configuration. Zero values
// keep the engine defaults.
func (c *NodeConfig) engineConfig(logger logging.Logger) *hraft.Config {
	conf := hraft.DefaultConfig()
	conf.LocalID = hraft.ServerID(c.ID)
	if c.HeartbeatTimeout > 0 {
		conf.HeartbeatTimeout = c.HeartbeatTimeout
	}
	if c.ElectionTimeout > 0 {
		conf.ElectionTimeout = c.ElectionTimeout
	}
	if c.LeaderLeaseTimeout > 0 {
		conf.LeaderLeaseTimeout = c.LeaderLeaseTimeout
	}
	if c.CommitTimeout > 0 {
		conf.CommitTimeout = c.CommitTimeout
	}
	if c.SnapshotThreshold > 0 {
		conf.SnapshotThreshold = c.SnapshotThreshold
	}
	if c.TrailingLogs > 0 {
		conf.TrailingLogs = c.TrailingLogs
	}
	if logger != nil {
		conf.Logger = logging.Hclog(logger)
	}
	return conf
}

// configuration returns the bootstrap membership.
func (c *NodeConfig) configuration() hraft.Configuration {
	servers := make([]hraft.Server, 0, len(c.Peers))
	for _, p := range c.Peers {
		servers = append(servers, hraft.Server{
			Suffrage: hraft.Voter,
			ID:       hraft.ServerID(p.ID),
			Address:  hraft.ServerAddress(p.Server.String()),
		})
	}
	return hraft.Configuration{Servers: servers}
}
