// Package config provides configuration parsing and validation for the
// quorum harness.
//
// # Overview
//
// The config package loads harness settings from YAML files with
// environment variable substitution. It supports:
//
//   - YAML configuration files decoded with gopkg.in/yaml.v3
//   - Environment variable substitution
//   - Default values for all settings
//   - Configuration validation
//
// # Configuration Structure
//
//	type Config struct {
//	    Cluster  ClusterConfig  // Node count, ports, directories, factories
//	    Raft     RaftConfig     // Engine timings
//	    Timeouts TimeoutsConfig // Harness deadlines
//	    Logging  LogConfig      // Logging settings
//	    Metrics  MetricsConfig  // Prometheus exporter
//	}
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/quorum/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or use defaults:
//
//	cfg := config.DefaultConfig()
//
// # Environment Variables
//
// Values may reference the environment:
//
//	cluster:
//	  baseDir: ${QUORUM_DATA:-/tmp/quorum}
//	  basePort: ${QUORUM_PORT}
//
// ${VAR} expands to the variable's value, or the empty string when unset.
// ${VAR:-default} expands to default when VAR is unset or empty.
//
// # Example Configuration
//
//	cluster:
//	  nodes: 5
//	  host: 127.0.0.1
//	  basePort: 9000
//	  clientPortOffset: 1000
//	  baseDir: /tmp/quorum
//	  transport: tcp
//	  storage: bolt
//	  serializer: binary
//
//	raft:
//	  heartbeatTimeout: 500ms
//	  electionTimeout: 500ms
//	  leaderLeaseTimeout: 250ms
//	  commitTimeout: 20ms
//
//	timeouts:
//	  startup: 30s
//	  failover: 10s
//
//	logging:
//	  level: info
//	  format: json
//
//	metrics:
//	  enabled: true
//	  address: 127.0.0.1:9100
//
// # Validation
//
//	errs := config.ValidateConfig(cfg)
//	for _, err := range errs {
//	    fmt.Println(err)
//	}
package config
