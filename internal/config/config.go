package config

import "time"

// Config holds the complete harness configuration.
type Config struct {
	Cluster  ClusterConfig  `yaml:"cluster"`
	Raft     RaftConfig     `yaml:"raft"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Logging  LogConfig      `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ClusterConfig describes the nodes the harness provisions.
type ClusterConfig struct {
	Nodes            int    `yaml:"nodes"`
	Host             string `yaml:"host"`
	BasePort         int    `yaml:"basePort"`
	ClientPortOffset int    `yaml:"clientPortOffset"`
	BaseDir          string `yaml:"baseDir"`
	Transport        string `yaml:"transport"`
	Storage          string `yaml:"storage"`
	Serializer       string `yaml:"serializer"`
}

// RaftConfig holds consensus engine tuning.
type RaftConfig struct {
	HeartbeatTimeout   time.Duration `yaml:"heartbeatTimeout"`
	ElectionTimeout    time.Duration `yaml:"electionTimeout"`
	LeaderLeaseTimeout time.Duration `yaml:"leaderLeaseTimeout"`
	CommitTimeout      time.Duration `yaml:"commitTimeout"`
	SnapshotThreshold  uint64        `yaml:"snapshotThreshold"`
	TrailingLogs       uint64        `yaml:"trailingLogs"`
}

// TimeoutsConfig holds the deadlines applied to harness operations.
type TimeoutsConfig struct {
	Startup       time.Duration `yaml:"startup"`
	Failover      time.Duration `yaml:"failover"`
	AddNode       time.Duration `yaml:"addNode"`
	ClientConnect time.Duration `yaml:"clientConnect"`
	Teardown      time.Duration `yaml:"teardown"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig holds the Prometheus exporter configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}
