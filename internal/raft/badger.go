package raft

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-msgpack/v2/codec"
	hraft "github.com/hashicorp/raft"
)

var (
	logPrefix    = []byte("l")
	stablePrefix = []byte("s")
)

// BadgerStore implements the engine's LogStore and StableStore on Badger.
// Log entries live under "l" followed by the big-endian index so iteration
// order matches index order; stable keys live under "s".
type BadgerStore struct {
	db     *badger.DB
	handle *codec.MsgpackHandle
}

// NewBadgerStore opens or creates a store in dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithSyncWrites(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, handle: &codec.MsgpackHandle{}}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func logKey(index uint64) []byte {
	key := make([]byte, len(logPrefix)+8)
	copy(key, logPrefix)
	binary.BigEndian.PutUint64(key[len(logPrefix):], index)
	return key
}

func stableKey(key []byte) []byte {
	return append(append([]byte{}, stablePrefix...), key...)
}

// FirstIndex returns the first stored log index, or 0 when empty.
func (s *BadgerStore) FirstIndex() (uint64, error) {
	return s.edgeIndex(false)
}

// LastIndex returns the last stored log index, or 0 when empty.
func (s *BadgerStore) LastIndex() (uint64, error) {
	return s.edgeIndex(true)
}

func (s *BadgerStore) edgeIndex(last bool) (uint64, error) {
	var index uint64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:  logPrefix,
			Reverse: last,
		})
		defer it.Close()

		if last {
			it.Seek(logKey(math.MaxUint64))
		} else {
			it.Rewind()
		}
		if it.ValidForPrefix(logPrefix) {
			index = binary.BigEndian.Uint64(it.Item().Key()[len(logPrefix):])
		}
		return nil
	})
	return index, err
}

// GetLog fetches the entry at index into out.
func (s *BadgerStore) GetLog(index uint64, out *hraft.Log) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(logKey(index))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return hraft.ErrLogNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return codec.NewDecoder(bytes.NewReader(val), s.handle).Decode(out)
		})
	})
}

// StoreLog stores a single entry.
func (s *BadgerStore) StoreLog(log *hraft.Log) error {
	return s.StoreLogs([]*hraft.Log{log})
}

// StoreLogs stores entries in one batch.
func (s *BadgerStore) StoreLogs(logs []*hraft.Log) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, log := range logs {
		var buf bytes.Buffer
		if err := codec.NewEncoder(&buf, s.handle).Encode(log); err != nil {
			return err
		}
		if err := wb.Set(logKey(log.Index), buf.Bytes()); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// DeleteRange removes entries with indexes in [min, max].
func (s *BadgerStore) DeleteRange(min, max uint64) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: logPrefix})
		defer it.Close()

		end := logKey(max)
		for it.Seek(logKey(min)); it.ValidForPrefix(logPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, end) > 0 {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Set stores a stable value.
func (s *BadgerStore) Set(key, val []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stableKey(key), val)
	})
}

// Get returns a stable value, or ErrKeyNotFound.
func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stableKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

// SetUint64 stores a stable integer.
func (s *BadgerStore) SetUint64(key []byte, val uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], val)
	return s.Set(key, buf[:])
}

// GetUint64 returns a stable integer, or ErrKeyNotFound.
func (s *BadgerStore) GetUint64(key []byte) (uint64, error) {
	val, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, errors.New("raft: corrupt uint64 value")
	}
	return binary.BigEndian.Uint64(val), nil
}
