package raft

import "errors"

// Raft errors.
var (
	// ErrNotLeader is returned when a write or linearizable read is attempted on a non-leader node.
	ErrNotLeader = errors.New("raft: not the leader")

	// ErrNotRunning is returned when an operation needs a started node.
	ErrNotRunning = errors.New("raft: node not running")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("raft: invalid configuration")

	// ErrUnknownStorage is returned for an unrecognised storage backend name.
	ErrUnknownStorage = errors.New("raft: unknown storage backend")

	// ErrUnknownTransport is returned for an unrecognised transport name.
	ErrUnknownTransport = errors.New("raft: unknown transport")

	// ErrKeyNotFound is returned by stable stores for a missing key. The
	// engine matches on the message, so it must stay "not found".
	ErrKeyNotFound = errors.New("not found")
)
