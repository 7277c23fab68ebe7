package kv

import (
	"fmt"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

type wireOp struct {
	Kind  uint8  `codec:"k"`
	Key   string `codec:"key,omitempty"`
	Value string `codec:"v,omitempty"`
}

type wireResult struct {
	Value string   `codec:"v,omitempty"`
	Found bool     `codec:"f,omitempty"`
	Keys  []string `codec:"keys,omitempty"`
}

// handleCodec encodes operations as maps through a go-msgpack handle.
// The same wire structs serve every handle.
type handleCodec struct {
	name   string
	handle codec.Handle
}

// newMsgpackCodec returns the MessagePack codec.
func newMsgpackCodec() *handleCodec {
	return &handleCodec{name: "msgpack", handle: &codec.MsgpackHandle{}}
}

// newJSONCodec returns the JSON codec. Operations read as
// {"k":1,"key":"a","v":"b"} on the wire.
func newJSONCodec() *handleCodec {
	return &handleCodec{name: "json", handle: &codec.JsonHandle{HTMLCharsAsIs: true}}
}

func (c *handleCodec) Name() string { return c.name }

// EncodeOp encodes op.
func (c *handleCodec) EncodeOp(op Op) ([]byte, error) {
	if err := checkKind(op.Kind); err != nil {
		return nil, err
	}
	var out []byte
	err := codec.NewEncoderBytes(&out, c.handle).Encode(wireOp{
		Kind:  uint8(op.Kind),
		Key:   op.Key,
		Value: op.Value,
	})
	return out, err
}

// DecodeOp decodes an operation produced by EncodeOp.
func (c *handleCodec) DecodeOp(data []byte) (Op, error) {
	var w wireOp
	if err := codec.NewDecoderBytes(data, c.handle).Decode(&w); err != nil {
		return Op{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if err := checkKind(Kind(w.Kind)); err != nil {
		return Op{}, err
	}
	return Op{Kind: Kind(w.Kind), Key: w.Key, Value: w.Value}, nil
}

// EncodeResult encodes res. The layout does not depend on kind.
func (c *handleCodec) EncodeResult(kind Kind, res Result) ([]byte, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var out []byte
	err := codec.NewEncoderBytes(&out, c.handle).Encode(wireResult{
		Value: res.Value,
		Found: res.Found,
		Keys:  res.Keys,
	})
	return out, err
}

// DecodeResult decodes a result produced by EncodeResult.
func (c *handleCodec) DecodeResult(kind Kind, data []byte) (Result, error) {
	if err := checkKind(kind); err != nil {
		return Result{}, err
	}
	var w wireResult
	if err := codec.NewDecoderBytes(data, c.handle).Decode(&w); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return Result{Value: w.Value, Found: w.Found, Keys: w.Keys}, nil
}

func checkKind(kind Kind) error {
	switch kind {
	case KindPut, KindGet, KindDelete, KindKeys:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
}
