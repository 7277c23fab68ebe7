package raft

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	hraft "github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStoreLogs(t *testing.T) {
	store, err := NewBadgerStore(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	defer store.Close()

	first, err := store.FirstIndex()
	require.NoError(t, err)
	assert.Zero(t, first)
	last, err := store.LastIndex()
	require.NoError(t, err)
	assert.Zero(t, last)

	var logs []*hraft.Log
	for i := uint64(1); i <= 5; i++ {
		logs = append(logs, &hraft.Log{Index: i, Term: 1, Type: hraft.LogCommand, Data: []byte{byte(i)}})
	}
	require.NoError(t, store.StoreLogs(logs))
	require.NoError(t, store.StoreLog(&hraft.Log{Index: 6, Term: 2, Type: hraft.LogCommand, Data: []byte("six")}))

	first, _ = store.FirstIndex()
	last, _ = store.LastIndex()
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(6), last)

	var got hraft.Log
	require.NoError(t, store.GetLog(6, &got))
	assert.Equal(t, uint64(2), got.Term)
	assert.Equal(t, []byte("six"), got.Data)

	assert.ErrorIs(t, store.GetLog(99, &got), hraft.ErrLogNotFound)

	require.NoError(t, store.DeleteRange(1, 3))
	first, _ = store.FirstIndex()
	last, _ = store.LastIndex()
	assert.Equal(t, uint64(4), first)
	assert.Equal(t, uint64(6), last)
	assert.ErrorIs(t, store.GetLog(2, &got), hraft.ErrLogNotFound)
}

func TestBadgerStoreStable(t *testing.T) {
	store, err := NewBadgerStore(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get([]byte("missing"))
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())

	_, err = store.GetUint64([]byte("term"))
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())

	require.NoError(t, store.Set([]byte("vote"), []byte("node-1")))
	val, err := store.Get([]byte("vote"))
	require.NoError(t, err)
	assert.Equal(t, []byte("node-1"), val)

	require.NoError(t, store.SetUint64([]byte("term"), 42))
	term, err := store.GetUint64([]byte("term"))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), term)

	// Stable keys never show up as log entries.
	last, err := store.LastIndex()
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestStorageByName(t *testing.T) {
	for _, name := range []string{"memory", "bolt", "badger"} {
		f, err := StorageByName(name)
		require.NoError(t, err, name)

		stores, err := f(t.TempDir(), hclog.NewNullLogger())
		require.NoError(t, err, name)
		assert.NotNil(t, stores.Logs)
		assert.NotNil(t, stores.Stable)
		assert.NotNil(t, stores.Snapshots)
		require.NoError(t, stores.Close(), name)
		require.NoError(t, stores.Close(), name)
	}

	_, err := StorageByName("rocks")
	assert.ErrorIs(t, err, ErrUnknownStorage)
}

func TestTransportByName(t *testing.T) {
	for _, name := range []string{"tcp", "inmem"} {
		f, err := TransportByName(name, nil)
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	_, err := TransportByName("udp", nil)
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestTCPTransport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ep, err := ParseEndpoint(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	trans, err := TCPTransport(DefaultMaxPool, time.Second)(ep, hclog.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, hraft.ServerAddress(ep.String()), trans.LocalAddr())

	// The port is taken until the transport closes.
	_, err = TCPTransport(DefaultMaxPool, time.Second)(ep, hclog.NewNullLogger())
	assert.Error(t, err)

	require.NoError(t, trans.Close())
}

func TestInmemNetwork(t *testing.T) {
	network := NewInmemNetwork()
	factory := network.Factory()
	a := Endpoint{Host: "127.0.0.1", Port: 1}
	b := Endpoint{Host: "127.0.0.1", Port: 2}

	ta, err := factory(a, nil)
	require.NoError(t, err)
	tb, err := factory(b, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, network.Len())

	_, err = factory(a, nil)
	assert.Error(t, err)

	require.NoError(t, ta.Close())
	require.NoError(t, ta.Close())
	assert.Equal(t, 1, network.Len())

	// The address is free again once its transport closed.
	ta2, err := factory(a, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, network.Len())

	require.NoError(t, ta2.Close())
	require.NoError(t, tb.Close())
	assert.Zero(t, network.Len())
}

func TestEndpoint(t *testing.T) {
	ep := Endpoint{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", ep.String())

	parsed, err := ParseEndpoint("127.0.0.1:9000")
	require.NoError(t, err)
	assert.Equal(t, ep, parsed)

	for _, bad := range []string{"", "localhost", "host:port", "host:70000"} {
		_, err := ParseEndpoint(bad)
		assert.Error(t, err, bad)
	}

	assert.True(t, Endpoint{}.IsZero())
	assert.False(t, ep.IsZero())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "leader", StatusLeader.String())
	assert.Equal(t, "follower", StatusFollower.String())
	assert.Equal(t, "candidate", StatusCandidate.String())
	assert.Equal(t, "inactive", StatusInactive.String())
}
