package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// Names accepted for the pluggable cluster components.
var (
	TransportNames  = []string{"tcp", "inmem"}
	StorageNames    = []string{"bolt", "badger", "memory"}
	SerializerNames = []string{"binary", "json", "msgpack"}
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateClusterConfig(&config.Cluster)...)
	errs = append(errs, validateRaftConfig(&config.Raft)...)
	errs = append(errs, validateTimeoutsConfig(&config.Timeouts)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validateMetricsConfig(&config.Metrics)...)

	return errs
}

// validateClusterConfig validates node count, port layout and component names.
func validateClusterConfig(config *ClusterConfig) []error {
	var errs []error

	if config.Nodes < 1 {
		errs = append(errs, ValidationError{
			Field:   "cluster.nodes",
			Message: "must be at least 1",
		})
	}

	if config.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "cluster.host",
			Message: "is required",
		})
	}

	if config.BasePort < 1 || config.BasePort > 65535 {
		errs = append(errs, ValidationError{
			Field:   "cluster.basePort",
			Message: "must be between 1 and 65535",
		})
	}

	// Client ports must not collide with server ports of the same run.
	if config.ClientPortOffset < config.Nodes {
		errs = append(errs, ValidationError{
			Field:   "cluster.clientPortOffset",
			Message: fmt.Sprintf("must be at least the node count (%d)", config.Nodes),
		})
	}

	if top := config.BasePort + config.ClientPortOffset + config.Nodes - 1; top > 65535 {
		errs = append(errs, ValidationError{
			Field:   "cluster.clientPortOffset",
			Message: fmt.Sprintf("highest client port %d exceeds 65535", top),
		})
	}

	if config.BaseDir == "" {
		errs = append(errs, ValidationError{
			Field:   "cluster.baseDir",
			Message: "is required",
		})
	}

	errs = append(errs, validateName("cluster.transport", config.Transport, TransportNames)...)
	errs = append(errs, validateName("cluster.storage", config.Storage, StorageNames)...)
	errs = append(errs, validateName("cluster.serializer", config.Serializer, SerializerNames)...)

	return errs
}

func validateName(field, value string, valid []string) []error {
	if slices.Contains(valid, value) {
		return nil
	}
	return []error{ValidationError{
		Field:   field,
		Message: "must be one of " + strings.Join(valid, ", "),
	}}
}

// validateRaftConfig validates engine timings.
func validateRaftConfig(config *RaftConfig) []error {
	var errs []error

	positive := []struct {
		field string
		value time.Duration
	}{
		{"raft.heartbeatTimeout", config.HeartbeatTimeout},
		{"raft.electionTimeout", config.ElectionTimeout},
		{"raft.leaderLeaseTimeout", config.LeaderLeaseTimeout},
		{"raft.commitTimeout", config.CommitTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, ValidationError{Field: p.field, Message: "must be positive"})
		}
	}

	if config.LeaderLeaseTimeout > config.HeartbeatTimeout {
		errs = append(errs, ValidationError{
			Field:   "raft.leaderLeaseTimeout",
			Message: "must not exceed raft.heartbeatTimeout",
		})
	}

	if config.ElectionTimeout < config.HeartbeatTimeout {
		errs = append(errs, ValidationError{
			Field:   "raft.electionTimeout",
			Message: "must be at least raft.heartbeatTimeout",
		})
	}

	return errs
}

// validateTimeoutsConfig validates harness deadlines.
func validateTimeoutsConfig(config *TimeoutsConfig) []error {
	var errs []error

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"timeouts.startup", config.Startup},
		{"timeouts.failover", config.Failover},
		{"timeouts.addNode", config.AddNode},
		{"timeouts.clientConnect", config.ClientConnect},
		{"timeouts.teardown", config.Teardown},
	}
	for _, to := range timeouts {
		if to.value <= 0 {
			errs = append(errs, ValidationError{Field: to.field, Message: "must be positive"})
		}
	}

	return errs
}

// validateLogConfig validates logging configuration.
func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

// validateMetricsConfig validates the exporter address when enabled.
func validateMetricsConfig(config *MetricsConfig) []error {
	if !config.Enabled {
		return nil
	}
	if err := validateAddress(config.Address); err != nil {
		return []error{ValidationError{
			Field:   "metrics.address",
			Message: err.Error(),
		}}
	}
	return nil
}

// validateAddress validates a network address in host:port format.
func validateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %v", err)
	}

	if port == "" {
		return fmt.Errorf("port is required")
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}

	return nil
}
