package object

import (
	"strconv"

	"objmodel/pkg/jsstring"
	"objmodel/pkg/value"
)

// Key is a property key: an array index or a string name. Names that spell
// an array index are always converted to index keys.
type Key struct {
	name  *jsstring.String // nil for index keys
	index uint32
}

// Index returns the key for element i. Values past the array-index range
// become names.
func Index(i uint32) Key {
	if i > value.MaxArrayIndex {
		return Key{name: jsstring.New(strconv.FormatUint(uint64(i), 10))}
	}
	return Key{index: i}
}

// Name returns the key spelled s.
func Name(s string) Key { return NameOf(jsstring.New(s)) }

// NameOf returns the key spelled by s.
func NameOf(s *jsstring.String) Key {
	if i, ok := s.ArrayIndex(); ok {
		return Key{index: i}
	}
	return Key{name: s}
}

// ToKey converts v the way a computed member access does.
func ToKey(v value.Value) Key {
	if i, ok := v.ToArrayIndex(); ok {
		return Key{index: i}
	}
	if s, ok := jsstring.FromValue(v); ok {
		return NameOf(s)
	}
	return NameOf(jsstring.New(v.String()))
}

func (k Key) IsIndex() bool { return k.name == nil }

// ArrayIndex returns the element index of an index key.
func (k Key) ArrayIndex() uint32 { return k.index }

// Name returns the name of a name key, nil for index keys.
func (k Key) Name() *jsstring.String { return k.name }

func (k Key) String() string {
	if k.name == nil {
		return strconv.FormatUint(uint64(k.index), 10)
	}
	return k.name.String()
}

// Value returns the key as a string value.
func (k Key) Value() value.Value {
	if k.name == nil {
		return jsstring.New(k.String()).Value()
	}
	return k.name.Value()
}
