package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	t.Run("cluster defaults", func(t *testing.T) {
		assert.Equal(t, 5, config.Cluster.Nodes)
		assert.Equal(t, "127.0.0.1", config.Cluster.Host)
		assert.Equal(t, 9000, config.Cluster.BasePort)
		assert.Equal(t, 1000, config.Cluster.ClientPortOffset)
		assert.Equal(t, "tcp", config.Cluster.Transport)
		assert.Equal(t, "bolt", config.Cluster.Storage)
		assert.Equal(t, "binary", config.Cluster.Serializer)
	})

	t.Run("timeout defaults", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, config.Timeouts.Startup)
		assert.Equal(t, 10*time.Second, config.Timeouts.Failover)
	})

	t.Run("logging defaults", func(t *testing.T) {
		assert.Equal(t, "info", config.Logging.Level)
		assert.Equal(t, "text", config.Logging.Format)
		assert.Equal(t, "stderr", config.Logging.Output)
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.Empty(t, ValidateConfig(config))
	})
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
cluster:
  nodes: 3
  basePort: 7000
  transport: inmem
  storage: memory
  serializer: msgpack

raft:
  heartbeatTimeout: 50ms
  electionTimeout: 50ms
  leaderLeaseTimeout: 50ms

timeouts:
  failover: 2s

logging:
  level: debug
  format: json
`)

	config, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, 3, config.Cluster.Nodes)
	assert.Equal(t, 7000, config.Cluster.BasePort)
	assert.Equal(t, "inmem", config.Cluster.Transport)
	assert.Equal(t, "memory", config.Cluster.Storage)
	assert.Equal(t, "msgpack", config.Cluster.Serializer)
	assert.Equal(t, 50*time.Millisecond, config.Raft.HeartbeatTimeout)
	assert.Equal(t, 2*time.Second, config.Timeouts.Failover)
	assert.Equal(t, "debug", config.Logging.Level)

	// Unset values keep their defaults.
	assert.Equal(t, "127.0.0.1", config.Cluster.Host)
	assert.Equal(t, 30*time.Second, config.Timeouts.Startup)
}

func TestParseConfigEmpty(t *testing.T) {
	config, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "cluster:\n  replicas: 3\n"},
		{"bad duration", "timeouts:\n  startup: soon\n"},
		{"bad number", "cluster:\n  nodes: many\n"},
		{"malformed", "cluster: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidYAML)
		})
	}
}

func TestEnvSubstitution(t *testing.T) {
	t.Setenv("QUORUM_TEST_PORT", "7100")
	t.Setenv("QUORUM_TEST_EMPTY", "")

	data := []byte(`
cluster:
  basePort: ${QUORUM_TEST_PORT}
  baseDir: ${QUORUM_TEST_EMPTY:-/srv/quorum}
  host: ${QUORUM_TEST_MISSING:-localhost}
`)

	config, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, 7100, config.Cluster.BasePort)
	assert.Equal(t, "/srv/quorum", config.Cluster.BaseDir)
	assert.Equal(t, "localhost", config.Cluster.Host)
}

func TestLoadConfig(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "quorum.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cluster:\n  nodes: 7\n  clientPortOffset: 100\n"), 0o644))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7, config.Cluster.Nodes)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	config := DefaultConfig()
	config.Cluster.Nodes = 9
	config.Timeouts.Failover = 1500 * time.Millisecond

	data, err := Marshal(config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "failover: 1.5s")

	parsed, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, config, parsed)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero nodes", func(c *Config) { c.Cluster.Nodes = 0 }, "cluster.nodes"},
		{"empty host", func(c *Config) { c.Cluster.Host = "" }, "cluster.host"},
		{"port out of range", func(c *Config) { c.Cluster.BasePort = 70000 }, "cluster.basePort"},
		{"offset overlaps servers", func(c *Config) { c.Cluster.ClientPortOffset = 2 }, "cluster.clientPortOffset"},
		{"client ports overflow", func(c *Config) { c.Cluster.BasePort = 65000 }, "cluster.clientPortOffset"},
		{"empty base dir", func(c *Config) { c.Cluster.BaseDir = "" }, "cluster.baseDir"},
		{"unknown transport", func(c *Config) { c.Cluster.Transport = "udp" }, "cluster.transport"},
		{"unknown storage", func(c *Config) { c.Cluster.Storage = "rocks" }, "cluster.storage"},
		{"unknown serializer", func(c *Config) { c.Cluster.Serializer = "xml" }, "cluster.serializer"},
		{"zero heartbeat", func(c *Config) { c.Raft.HeartbeatTimeout = 0 }, "raft.heartbeatTimeout"},
		{"lease exceeds heartbeat", func(c *Config) { c.Raft.LeaderLeaseTimeout = time.Second }, "raft.leaderLeaseTimeout"},
		{"election below heartbeat", func(c *Config) { c.Raft.ElectionTimeout = 100 * time.Millisecond }, "raft.electionTimeout"},
		{"zero startup", func(c *Config) { c.Timeouts.Startup = 0 }, "timeouts.startup"},
		{"negative teardown", func(c *Config) { c.Timeouts.Teardown = -time.Second }, "timeouts.teardown"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative output", func(c *Config) { c.Logging.Output = "quorum.log" }, "logging.output"},
		{"bad metrics address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = "nowhere"
		}, "metrics.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			errs := ValidateConfig(config)
			require.NotEmpty(t, errs)

			var fields []string
			for _, err := range errs {
				var ve ValidationError
				require.ErrorAs(t, err, &ve)
				fields = append(fields, ve.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Field: "cluster.nodes", Message: "must be at least 1"}
	assert.Equal(t, "cluster.nodes: must be at least 1", err.Error())
}
