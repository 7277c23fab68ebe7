package kv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"sort"
	"sync"

	hraft "github.com/hashicorp/raft"
)

// Machine is an in-memory key/value map replicated through the raft log.
type Machine struct {
	codec Codec

	mu   sync.RWMutex
	data map[string]string
}

// NewMachine creates an empty machine that decodes commands with c.
func NewMachine(c Codec) *Machine {
	return &Machine{codec: c, data: make(map[string]string)}
}

// Codec returns the codec the machine decodes commands with.
func (m *Machine) Codec() Codec {
	return m.codec
}

// Apply applies a committed log entry. It returns the encoded Result, or an
// error when the entry cannot be decoded.
func (m *Machine) Apply(l *hraft.Log) interface{} {
	op, err := m.codec.DecodeOp(l.Data)
	if err != nil {
		return err
	}
	if err := op.Validate(); err != nil {
		return err
	}

	var res Result
	if op.IsWrite() {
		m.mu.Lock()
		res = m.write(op)
		m.mu.Unlock()
	} else {
		m.mu.RLock()
		res = m.read(op)
		m.mu.RUnlock()
	}

	out, err := m.codec.EncodeResult(op.Kind, res)
	if err != nil {
		return err
	}
	return out
}

// Query answers a read-only operation from local state.
func (m *Machine) Query(data []byte) ([]byte, error) {
	op, err := m.codec.DecodeOp(data)
	if err != nil {
		return nil, err
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if op.IsWrite() {
		return nil, ErrNotReadOnly
	}

	m.mu.RLock()
	res := m.read(op)
	m.mu.RUnlock()

	return m.codec.EncodeResult(op.Kind, res)
}

func (m *Machine) write(op Op) Result {
	prev, found := m.data[op.Key]
	switch op.Kind {
	case KindPut:
		m.data[op.Key] = op.Value
	case KindDelete:
		delete(m.data, op.Key)
	}
	return Result{Value: prev, Found: found}
}

func (m *Machine) read(op Op) Result {
	switch op.Kind {
	case KindGet:
		value, found := m.data[op.Key]
		return Result{Value: value, Found: found}
	case KindKeys:
		return Result{Keys: m.sortedKeys()}
	}
	return Result{}
}

func (m *Machine) sortedKeys() []string {
	var keys []string
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (m *Machine) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Snapshot captures the current map. The copy is taken under the read
// lock; Persist runs without it.
func (m *Machine) Snapshot() (hraft.FSMSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make(map[string]string, len(m.data))
	for k, v := range m.data {
		entries[k] = v
	}
	return &snapshot{entries: entries}, nil
}

// Restore replaces the map with the contents of a snapshot.
func (m *Machine) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	data, err := readEntries(bufio.NewReader(rc))
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

type snapshot struct {
	entries map[string]string
}

// Persist writes the entry count followed by each key and value, keys in
// sorted order.
func (s *snapshot) Persist(sink hraft.SnapshotSink) error {
	if err := writeEntries(sink, s.entries); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *snapshot) Release() {}

func writeEntries(w io.Writer, entries map[string]string) error {
	bw := bufio.NewWriter(w)

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeField(bw, k); err != nil {
			return err
		}
		if err := writeField(bw, entries[k]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readEntries(r io.Reader) (map[string]string, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrCorrupted
	}

	entries := make(map[string]string)
	for i := uint32(0); i < count; i++ {
		key, err := readField(r)
		if err != nil {
			return nil, err
		}
		value, err := readField(r)
		if err != nil {
			return nil, err
		}
		entries[key] = value
	}
	return entries, nil
}

func writeField(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readField(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", ErrCorrupted
	}
	// The buffer grows with the bytes actually present, so a corrupt
	// length cannot force a large allocation.
	var buf bytes.Buffer
	if n, err := io.CopyN(&buf, r, int64(length)); err != nil || n != int64(length) {
		return "", ErrCorrupted
	}
	return buf.String(), nil
}
