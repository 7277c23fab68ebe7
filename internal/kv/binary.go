package kv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// kindCodec holds the encode and decode functions for one operation kind.
type kindCodec struct {
	encodeOp     func(buf *bytes.Buffer, op Op)
	decodeOp     func(r *bytes.Reader) (Op, error)
	encodeResult func(buf *bytes.Buffer, res Result)
	decodeResult func(r *bytes.Reader) (Result, error)
}

// binaryCodec is a compact length-prefixed encoding. Every payload starts
// with the kind byte; the rest is laid out by the kind's table entry.
type binaryCodec struct {
	kinds map[Kind]kindCodec
}

func newBinaryCodec() *binaryCodec {
	keyOnly := kindCodec{
		encodeOp: func(buf *bytes.Buffer, op Op) { writeString(buf, op.Key) },
		decodeOp: func(r *bytes.Reader) (Op, error) {
			key, err := readString(r)
			return Op{Key: key}, err
		},
		encodeResult: encodeValueResult,
		decodeResult: decodeValueResult,
	}

	return &binaryCodec{kinds: map[Kind]kindCodec{
		KindPut: {
			encodeOp: func(buf *bytes.Buffer, op Op) {
				writeString(buf, op.Key)
				writeString(buf, op.Value)
			},
			decodeOp: func(r *bytes.Reader) (Op, error) {
				key, err := readString(r)
				if err != nil {
					return Op{}, err
				}
				value, err := readString(r)
				return Op{Key: key, Value: value}, err
			},
			encodeResult: encodeValueResult,
			decodeResult: decodeValueResult,
		},
		KindGet:    keyOnly,
		KindDelete: keyOnly,
		KindKeys: {
			encodeOp: func(*bytes.Buffer, Op) {},
			decodeOp: func(*bytes.Reader) (Op, error) { return Op{}, nil },
			encodeResult: func(buf *bytes.Buffer, res Result) {
				binary.Write(buf, binary.LittleEndian, uint32(len(res.Keys)))
				for _, key := range res.Keys {
					writeString(buf, key)
				}
			},
			decodeResult: func(r *bytes.Reader) (Result, error) {
				var count uint32
				if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
					return Result{}, ErrCorrupted
				}
				if int64(count) > int64(r.Len()) {
					return Result{}, ErrCorrupted
				}
				var keys []string
				for i := uint32(0); i < count; i++ {
					key, err := readString(r)
					if err != nil {
						return Result{}, err
					}
					keys = append(keys, key)
				}
				return Result{Keys: keys}, nil
			},
		},
	}}
}

func (c *binaryCodec) Name() string { return "binary" }

func (c *binaryCodec) lookup(kind Kind) (kindCodec, error) {
	kc, ok := c.kinds[kind]
	if !ok {
		return kindCodec{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	return kc, nil
}

// EncodeOp encodes op.
func (c *binaryCodec) EncodeOp(op Op) ([]byte, error) {
	kc, err := c.lookup(op.Kind)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(op.Kind))
	kc.encodeOp(&buf, op)
	return buf.Bytes(), nil
}

// DecodeOp decodes an operation produced by EncodeOp.
func (c *binaryCodec) DecodeOp(data []byte) (Op, error) {
	if len(data) == 0 {
		return Op{}, ErrCorrupted
	}
	kind := Kind(data[0])
	kc, err := c.lookup(kind)
	if err != nil {
		return Op{}, err
	}
	r := bytes.NewReader(data[1:])
	op, err := kc.decodeOp(r)
	if err != nil {
		return Op{}, err
	}
	if r.Len() != 0 {
		return Op{}, ErrCorrupted
	}
	op.Kind = kind
	return op, nil
}

// EncodeResult encodes the result of an operation of the given kind.
func (c *binaryCodec) EncodeResult(kind Kind, res Result) ([]byte, error) {
	kc, err := c.lookup(kind)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	kc.encodeResult(&buf, res)
	return buf.Bytes(), nil
}

// DecodeResult decodes a result produced by EncodeResult for kind.
func (c *binaryCodec) DecodeResult(kind Kind, data []byte) (Result, error) {
	kc, err := c.lookup(kind)
	if err != nil {
		return Result{}, err
	}
	return kc.decodeResult(bytes.NewReader(data))
}

func encodeValueResult(buf *bytes.Buffer, res Result) {
	if !res.Found {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeString(buf, res.Value)
}

func decodeValueResult(r *bytes.Reader) (Result, error) {
	found, err := r.ReadByte()
	if err != nil {
		return Result{}, ErrCorrupted
	}
	switch found {
	case 0:
		return Result{}, nil
	case 1:
		value, err := readString(r)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: value, Found: true}, nil
	default:
		return Result{}, ErrCorrupted
	}
}

// writeString writes a length-prefixed string.
func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// readString reads a length-prefixed string.
func readString(r *bytes.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", ErrCorrupted
	}
	if int64(length) > int64(r.Len()) {
		return "", ErrCorrupted
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", ErrCorrupted
	}
	return string(data), nil
}
