package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Nodes:            5,
			Host:             "127.0.0.1",
			BasePort:         9000,
			ClientPortOffset: 1000,
			BaseDir:          filepath.Join(os.TempDir(), "quorum"),
			Transport:        "tcp",
			Storage:          "bolt",
			Serializer:       "binary",
		},
		Raft: RaftConfig{
			HeartbeatTimeout:   500 * time.Millisecond,
			ElectionTimeout:    500 * time.Millisecond,
			LeaderLeaseTimeout: 250 * time.Millisecond,
			CommitTimeout:      20 * time.Millisecond,
			SnapshotThreshold:  1024,
			TrailingLogs:       1024,
		},
		Timeouts: TimeoutsConfig{
			Startup:       30 * time.Second,
			Failover:      10 * time.Second,
			AddNode:       30 * time.Second,
			ClientConnect: 10 * time.Second,
			Teardown:      30 * time.Second,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9100",
		},
	}
}
