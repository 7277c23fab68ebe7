package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

type fakeBackend struct {
	mu      sync.Mutex
	status  raft.Status
	leader  raft.Endpoint
	known   bool
	applied [][]byte
	err     error
}

func (f *fakeBackend) Status() raft.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeBackend) LeaderClientEndpoint() (raft.Endpoint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leader, f.known
}

func (f *fakeBackend) Apply(ctx context.Context, cmd []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, append([]byte(nil), cmd...))
	return append([]byte("applied:"), cmd...), nil
}

func (f *fakeBackend) Query(ctx context.Context, query []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("read:"), query...), nil
}

func startServer(t *testing.T, backend Backend) (*Server, *redis.Client) {
	t.Helper()

	srv := New(Config{Addr: "127.0.0.1:0", Backend: backend})
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	client := redis.NewClient(&redis.Options{
		Addr:            srv.Addr(),
		Protocol:        2,
		DisableIdentity: true,
		MaxRetries:      -1,
	})
	t.Cleanup(func() { client.Close() })
	return srv, client
}

func TestPingAndStatus(t *testing.T) {
	backend := &fakeBackend{status: raft.StatusFollower}
	_, client := startServer(t, backend)
	ctx := context.Background()

	pong, err := client.Do(ctx, "PING").Text()
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)

	echo, err := client.Do(ctx, "PING", "hello").Text()
	require.NoError(t, err)
	assert.Equal(t, "hello", echo)

	status, err := client.Do(ctx, "STATUS").Text()
	require.NoError(t, err)
	assert.Equal(t, "follower", status)
}

func TestLeaderCommand(t *testing.T) {
	backend := &fakeBackend{}
	_, client := startServer(t, backend)
	ctx := context.Background()

	_, err := client.Do(ctx, "LEADER").Text()
	assert.ErrorIs(t, err, redis.Nil)

	backend.mu.Lock()
	backend.leader = raft.Endpoint{Host: "127.0.0.1", Port: 8001}
	backend.known = true
	backend.mu.Unlock()

	leader, err := client.Do(ctx, "LEADER").Text()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8001", leader)
}

func TestSubmitAndQuery(t *testing.T) {
	backend := &fakeBackend{status: raft.StatusLeader}
	_, client := startServer(t, backend)
	ctx := context.Background()

	out, err := client.Do(ctx, "SUBMIT", []byte{0x01, 0x00, 0xff}).Text()
	require.NoError(t, err)
	assert.Equal(t, "applied:\x01\x00\xff", out)

	out, err = client.Do(ctx, "QUERY", "k").Text()
	require.NoError(t, err)
	assert.Equal(t, "read:k", out)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.applied, 1)
	assert.Equal(t, []byte{0x01, 0x00, 0xff}, backend.applied[0])
}

func TestNotLeaderRedirect(t *testing.T) {
	backend := &fakeBackend{
		status: raft.StatusFollower,
		err:    raft.ErrNotLeader,
	}
	_, client := startServer(t, backend)
	ctx := context.Background()

	err := client.Do(ctx, "SUBMIT", "x").Err()
	require.Error(t, err)
	assert.Equal(t, "NOTLEADER", err.Error())

	backend.mu.Lock()
	backend.leader = raft.Endpoint{Host: "127.0.0.1", Port: 8003}
	backend.known = true
	backend.mu.Unlock()

	err = client.Do(ctx, "QUERY", "x").Err()
	require.Error(t, err)
	assert.Equal(t, "NOTLEADER 127.0.0.1:8003", err.Error())
}

func TestBackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	_, client := startServer(t, backend)

	err := client.Do(context.Background(), "SUBMIT", "x").Err()
	require.Error(t, err)
	assert.Equal(t, "ERR boom", err.Error())
}

func TestCommandErrors(t *testing.T) {
	_, client := startServer(t, &fakeBackend{})
	ctx := context.Background()

	err := client.Do(ctx, "FLUSHALL").Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	err = client.Do(ctx, "SUBMIT").Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong number of arguments")
}

func TestClientsCount(t *testing.T) {
	srv, client := startServer(t, &fakeBackend{})

	require.NoError(t, client.Do(context.Background(), "PING").Err())
	assert.Equal(t, 1, srv.Clients())

	client.Close()
	assert.Eventually(t, func() bool { return srv.Clients() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	srv := New(Config{Addr: "127.0.0.1:0", Backend: &fakeBackend{}})

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Start())
	require.NoError(t, srv.Start())

	addr := srv.Addr()
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Protocol:        2,
		DisableIdentity: true,
		MaxRetries:      -1,
		DialTimeout:     200 * time.Millisecond,
	})
	defer client.Close()

	require.NoError(t, client.Do(context.Background(), "PING").Err())

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())

	assert.Error(t, client.Do(context.Background(), "PING").Err())
}

func TestStartAddressInUse(t *testing.T) {
	first := New(Config{Addr: "127.0.0.1:0", Backend: &fakeBackend{}})
	require.NoError(t, first.Start())
	defer first.Stop()

	second := New(Config{Addr: first.Addr(), Backend: &fakeBackend{}})
	assert.Error(t, second.Start())
}
