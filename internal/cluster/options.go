package cluster

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/KilimcininKorOglu/quorum/internal/config"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
	"github.com/KilimcininKorOglu/quorum/internal/raft"
	"github.com/KilimcininKorOglu/quorum/internal/server"
)

// Options configures a Harness.
type Options struct {
	Host             string
	BasePort         int
	ClientPortOffset int
	BaseDir          string

	Factories Factories
	Timings   Timings

	// RequestTimeout bounds one client request on a node endpoint.
	RequestTimeout time.Duration

	Logger logging.Logger
}

func (o *Options) setDefaults() error {
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}
	if o.BasePort <= 0 {
		return errors.New("base port is required")
	}
	if o.ClientPortOffset <= 0 {
		return errors.New("client port offset is required")
	}
	if o.BaseDir == "" {
		o.BaseDir = filepath.Join(os.TempDir(), "quorum")
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = server.DefaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return nil
}

// FromConfig builds harness options from a configuration. The inmem
// transport gets a fresh network shared by every node of the harness.
func FromConfig(cfg *config.Config, logger logging.Logger) (Options, error) {
	var network *raft.InmemNetwork
	if cfg.Cluster.Transport == "inmem" {
		network = raft.NewInmemNetwork()
	}

	factories, err := FactoriesByName(cfg.Cluster.Transport, cfg.Cluster.Storage, cfg.Cluster.Serializer, network)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Host:             cfg.Cluster.Host,
		BasePort:         cfg.Cluster.BasePort,
		ClientPortOffset: cfg.Cluster.ClientPortOffset,
		BaseDir:          cfg.Cluster.BaseDir,
		Factories:        factories,
		Timings: Timings{
			HeartbeatTimeout:   cfg.Raft.HeartbeatTimeout,
			ElectionTimeout:    cfg.Raft.ElectionTimeout,
			LeaderLeaseTimeout: cfg.Raft.LeaderLeaseTimeout,
			CommitTimeout:      cfg.Raft.CommitTimeout,
			SnapshotThreshold:  cfg.Raft.SnapshotThreshold,
			TrailingLogs:       cfg.Raft.TrailingLogs,
		},
		Logger: logger,
	}, nil
}
