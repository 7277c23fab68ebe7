package kv

import (
	"fmt"
	"sort"
)

// Codec converts operations and results to and from bytes.
type Codec interface {
	Name() string
	EncodeOp(op Op) ([]byte, error)
	DecodeOp(data []byte) (Op, error)
	EncodeResult(kind Kind, res Result) ([]byte, error)
	DecodeResult(kind Kind, data []byte) (Result, error)
}

// codecs is the fixed set of available codecs.
var codecs = map[string]func() Codec{
	"binary":  func() Codec { return newBinaryCodec() },
	"json":    func() Codec { return newJSONCodec() },
	"msgpack": func() Codec { return newMsgpackCodec() },
}

// LookupCodec returns the codec registered under name.
func LookupCodec(name string) (Codec, error) {
	ctor, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return ctor(), nil
}

// CodecNames returns the names LookupCodec accepts, sorted.
func CodecNames() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
