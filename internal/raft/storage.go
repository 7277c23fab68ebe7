package raft

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	hraft "github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

const (
	logCacheSize    = 256
	snapshotsRetain = 2
)

// Stores bundles the log, stable and snapshot stores of one node.
type Stores struct {
	Logs      hraft.LogStore
	Stable    hraft.StableStore
	Snapshots hraft.SnapshotStore

	closers []io.Closer
}

// Close releases every underlying store.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// StorageFactory opens the stores of a node rooted at dir.
type StorageFactory func(dir string, logger hclog.Logger) (*Stores, error)

// MemoryStorage keeps everything in process memory. Nothing is written to
// dir and state does not survive a restart.
func MemoryStorage() StorageFactory {
	return func(string, hclog.Logger) (*Stores, error) {
		store := hraft.NewInmemStore()
		return &Stores{
			Logs:      store,
			Stable:    store,
			Snapshots: hraft.NewInmemSnapshotStore(),
		}, nil
	}
}

// BoltStorage stores the log and stable state in a BoltDB file under dir
// and snapshots as files next to it.
func BoltStorage() StorageFactory {
	return func(dir string, logger hclog.Logger) (*Stores, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		store, err := raftboltdb.NewBoltStore(filepath.Join(dir, "raft.db"))
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return diskStores(dir, store, store, logger)
	}
}

// BadgerStorage stores the log and stable state in a Badger database under
// dir and snapshots as files next to it.
func BadgerStorage() StorageFactory {
	return func(dir string, logger hclog.Logger) (*Stores, error) {
		store, err := NewBadgerStore(filepath.Join(dir, "badger"))
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return diskStores(dir, store, store, logger)
	}
}

type logStableStore interface {
	hraft.LogStore
	hraft.StableStore
}

func diskStores(dir string, store logStableStore, closer io.Closer, logger hclog.Logger) (*Stores, error) {
	snaps, err := hraft.NewFileSnapshotStoreWithLogger(dir, snapshotsRetain, logger.Named("snapshot"))
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	logs, err := hraft.NewLogCache(logCacheSize, store)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return &Stores{
		Logs:      logs,
		Stable:    store,
		Snapshots: snaps,
		closers:   []io.Closer{closer},
	}, nil
}

// StorageByName resolves a storage factory by its configuration name.
func StorageByName(name string) (StorageFactory, error) {
	switch name {
	case "memory":
		return MemoryStorage(), nil
	case "bolt":
		return BoltStorage(), nil
	case "badger":
		return BadgerStorage(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, name)
	}
}
