package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a fast in-process cluster configuration.
func writeConfig(t *testing.T, basePort int) string {
	t.Helper()
	dir := t.TempDir()
	data := fmt.Sprintf(`cluster:
  nodes: 3
  host: 127.0.0.1
  basePort: %d
  clientPortOffset: 100
  baseDir: %s
  transport: inmem
  storage: memory
  serializer: msgpack
raft:
  heartbeatTimeout: 50ms
  electionTimeout: 50ms
  leaderLeaseTimeout: 50ms
  commitTimeout: 5ms
timeouts:
  startup: 10s
  failover: 10s
  addNode: 10s
  clientConnect: 10s
  teardown: 10s
logging:
  level: error
  output: stderr
`, basePort, filepath.Join(dir, "nodes"))

	path := filepath.Join(dir, "quorum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(ctx, append([]string{"quorum"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_NoArgs(t *testing.T) {
	code, stdout, _ := runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Usage:")
}

func TestRun_Help(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"help command", []string{"help"}},
		{"short flag", []string{"-h"}},
		{"long flag", []string{"--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			assert.Equal(t, 0, code)
			assert.Contains(t, stdout, "quorum")
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "unknown")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "quorum version "+version)

	code, stdout, _ = runCLI(t, "version", "--short")
	assert.Equal(t, 0, code)
	assert.Equal(t, version+"\n", stdout)
}

func TestRun_ConfigShow(t *testing.T) {
	code, stdout, _ := runCLI(t, "config", "show")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "basePort: 9000")
	assert.Contains(t, stdout, "transport: tcp")

	path := writeConfig(t, 25000)
	code, stdout, _ = runCLI(t, "config", "show", "--config", path, "--log-level", "debug")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "basePort: 25000")
	assert.Contains(t, stdout, "level: debug")
}

func TestRun_ConfigValidate(t *testing.T) {
	code, stdout, _ := runCLI(t, "config", "validate", "--config", writeConfig(t, 25000))
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Configuration is valid")

	code, _, stderr := runCLI(t, "config", "validate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--config is required")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cluster:\n  nodes: 0\n  storage: floppy\n"), 0o644))
	code, _, stderr = runCLI(t, "config", "validate", "--config", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "cluster.nodes")
	assert.Contains(t, stderr, "cluster.storage")

	code, _, _ = runCLI(t, "config", "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
}

func TestRun_Scenario(t *testing.T) {
	path := writeConfig(t, 26000)

	code, stdout, stderr := runCLI(t, "run", "--config", path, "--key", "k", "--value", "v")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "cluster started: 3 nodes")
	assert.Contains(t, stdout, "wrote k=v")
}

func TestRun_ScenarioWithFailoverAndAddNode(t *testing.T) {
	path := writeConfig(t, 27000)

	code, stdout, stderr := runCLI(t, "run", "--config", path, "--nodes", "5", "--failover", "--add-node")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "cluster started: 5 nodes")
	assert.Contains(t, stdout, "leader moved from")
	assert.Contains(t, stdout, "read greeting=hello after failover")
	assert.Contains(t, stdout, "added node-5")
}

func TestRun_InvalidOverride(t *testing.T) {
	code, _, stderr := runCLI(t, "run", "--config", writeConfig(t, 28000), "--transport", "carrier-pigeon")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "cluster.transport")
}

func TestRun_Serve(t *testing.T) {
	path := writeConfig(t, 29000)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	code, stdout, stderr := runCLIContext(t, ctx, "serve", "--config", path, "--http-addr", "127.0.0.1:0")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "cluster of 3 nodes running")
	assert.Contains(t, stdout, "serving http://127.0.0.1:")
}
