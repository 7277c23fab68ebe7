package kv

import "errors"

// Errors returned by the key/value state machine and its codecs.
var (
	ErrUnknownKind  = errors.New("kv: unknown operation kind")
	ErrEmptyKey     = errors.New("kv: empty key")
	ErrUnknownCodec = errors.New("kv: unknown codec")
	ErrCorrupted    = errors.New("kv: corrupted data")
	ErrNotReadOnly  = errors.New("kv: write operation in query")
)
