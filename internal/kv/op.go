package kv

import "fmt"

// Kind identifies a state machine operation.
type Kind uint8

// Operation kinds.
const (
	KindPut Kind = iota + 1
	KindGet
	KindDelete
	KindKeys
)

// String returns the command name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPut:
		return "put"
	case KindGet:
		return "get"
	case KindDelete:
		return "delete"
	case KindKeys:
		return "keys"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsWrite reports whether operations of this kind change state and must go
// through the replicated log.
func (k Kind) IsWrite() bool {
	return k == KindPut || k == KindDelete
}

// Op is a single state machine operation.
type Op struct {
	Kind  Kind
	Key   string
	Value string
}

// Put returns an operation that stores value under key.
func Put(key, value string) Op {
	return Op{Kind: KindPut, Key: key, Value: value}
}

// Get returns an operation that reads key.
func Get(key string) Op {
	return Op{Kind: KindGet, Key: key}
}

// Delete returns an operation that removes key.
func Delete(key string) Op {
	return Op{Kind: KindDelete, Key: key}
}

// Keys returns an operation that lists all keys.
func Keys() Op {
	return Op{Kind: KindKeys}
}

// IsWrite reports whether op changes state.
func (o Op) IsWrite() bool {
	return o.Kind.IsWrite()
}

// Validate checks that op is well formed.
func (o Op) Validate() error {
	switch o.Kind {
	case KindPut, KindGet, KindDelete:
		if o.Key == "" {
			return ErrEmptyKey
		}
		return nil
	case KindKeys:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(o.Kind))
	}
}

func (o Op) String() string {
	switch o.Kind {
	case KindPut:
		return fmt.Sprintf("put %q=%q", o.Key, o.Value)
	case KindKeys:
		return "keys"
	default:
		return fmt.Sprintf("%s %q", o.Kind, o.Key)
	}
}

// Result is the outcome of an operation.
//
// For Put and Delete, Value and Found describe the previous value. For Get
// they describe the current value. Keys is set only for Keys operations and
// is sorted.
type Result struct {
	Value string
	Found bool
	Keys  []string
}
