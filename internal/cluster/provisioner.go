package cluster

import (
	"errors"
	"fmt"
	"time"

	"github.com/KilimcininKorOglu/quorum/internal/kv"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
	"github.com/KilimcininKorOglu/quorum/internal/raft"
	"github.com/KilimcininKorOglu/quorum/internal/server"
)

// Factories are the pluggable parts a node is built from.
type Factories struct {
	Transport    raft.TransportFactory
	Storage      raft.StorageFactory
	Serializer   func() (kv.Codec, error)
	StateMachine func(kv.Codec) raft.StateMachine
}

// Validate reports a missing factory.
func (f Factories) Validate() error {
	switch {
	case f.Transport == nil:
		return errors.New("transport factory is required")
	case f.Storage == nil:
		return errors.New("storage factory is required")
	case f.Serializer == nil:
		return errors.New("serializer factory is required")
	case f.StateMachine == nil:
		return errors.New("state machine factory is required")
	}
	return nil
}

// Serializer returns a factory for the named codec.
func Serializer(name string) func() (kv.Codec, error) {
	return func() (kv.Codec, error) {
		return kv.LookupCodec(name)
	}
}

// KVStateMachine builds the key/value state machine.
func KVStateMachine(c kv.Codec) raft.StateMachine {
	return kv.NewMachine(c)
}

// FactoriesByName resolves transport, storage and serializer names.
// network is used by the inmem transport and may be nil otherwise.
func FactoriesByName(transport, storage, serializer string, network *raft.InmemNetwork) (Factories, error) {
	tf, err := raft.TransportByName(transport, network)
	if err != nil {
		return Factories{}, err
	}
	sf, err := raft.StorageByName(storage)
	if err != nil {
		return Factories{}, err
	}
	if _, err := kv.LookupCodec(serializer); err != nil {
		return Factories{}, err
	}
	return Factories{
		Transport:    tf,
		Storage:      sf,
		Serializer:   Serializer(serializer),
		StateMachine: KVStateMachine,
	}, nil
}

// Timings tunes the engine of every provisioned node. Zero values keep
// the engine defaults.
type Timings struct {
	HeartbeatTimeout   time.Duration
	ElectionTimeout    time.Duration
	LeaderLeaseTimeout time.Duration
	CommitTimeout      time.Duration
	SnapshotThreshold  uint64
	TrailingLogs       uint64
}

// Provisioner builds nodes from factories. The codec is resolved once,
// when the provisioner is created.
type Provisioner struct {
	factories      Factories
	codec          kv.Codec
	timings        Timings
	requestTimeout time.Duration
	logger         logging.Logger
}

// NewProvisioner creates a provisioner.
func NewProvisioner(f Factories, t Timings, requestTimeout time.Duration, logger logging.Logger) (*Provisioner, error) {
	if err := f.Validate(); err != nil {
		return nil, newError("provision", ErrProvisioning, err)
	}
	codec, err := f.Serializer()
	if err != nil {
		return nil, newError("provision", ErrProvisioning, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provisioner{
		factories:      f,
		codec:          codec,
		timings:        t,
		requestTimeout: requestTimeout,
		logger:         logger,
	}, nil
}

// Codec returns the codec shared by state machines and clients.
func (p *Provisioner) Codec() kv.Codec {
	return p.codec
}

// Provision builds the node described by spec. peers is the membership the
// node starts with; bootstrap seeds it as the initial configuration.
// Nothing is bound or opened until the node is started.
func (p *Provisioner) Provision(spec NodeSpec, peers []raft.Peer, bootstrap bool) (*Node, error) {
	rn, err := raft.NewNode(raft.NodeConfig{
		ID:                 spec.ID,
		Server:             spec.ServerAddress,
		Client:             spec.ClientAddress,
		DataDir:            spec.StoragePath,
		Peers:              peers,
		Bootstrap:          bootstrap,
		HeartbeatTimeout:   p.timings.HeartbeatTimeout,
		ElectionTimeout:    p.timings.ElectionTimeout,
		LeaderLeaseTimeout: p.timings.LeaderLeaseTimeout,
		CommitTimeout:      p.timings.CommitTimeout,
		SnapshotThreshold:  p.timings.SnapshotThreshold,
		TrailingLogs:       p.timings.TrailingLogs,
		Transport:          p.factories.Transport,
		Storage:            p.factories.Storage,
		StateMachine:       p.factories.StateMachine(p.codec),
		Logger:             p.logger,
	})
	if err != nil {
		return nil, newError("provision", ErrProvisioning, fmt.Errorf("%s: %w", spec.ID, err))
	}

	srv := server.New(server.Config{
		Addr:           spec.ClientAddress.String(),
		Backend:        rn,
		Logger:         p.logger.WithFields("node", spec.ID).Named("endpoint"),
		RequestTimeout: p.requestTimeout,
	})

	return &Node{spec: spec, raft: rn, server: srv}, nil
}
