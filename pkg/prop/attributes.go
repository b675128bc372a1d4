// Package prop defines the property attribute bitset shared by shapes and
// array storage.
package prop

import "strings"

// Attributes is the attribute set of one property. Accessor properties ignore
// Writable.
type Attributes uint8

const (
	Writable Attributes = 1 << iota
	Enumerable
	Configurable
	Accessor

	// Data is the attribute set of a property created by plain assignment.
	Data = Writable | Enumerable | Configurable
	// None is a non-writable, non-enumerable, non-configurable data property.
	None Attributes = 0
)

func (a Attributes) IsWritable() bool     { return a&Accessor == 0 && a&Writable != 0 }
func (a Attributes) IsEnumerable() bool   { return a&Enumerable != 0 }
func (a Attributes) IsConfigurable() bool { return a&Configurable != 0 }
func (a Attributes) IsAccessor() bool     { return a&Accessor != 0 }
func (a Attributes) IsData() bool         { return a&Accessor == 0 }

// Normalized clears Writable on accessors so equal descriptors compare equal.
func (a Attributes) Normalized() Attributes {
	if a&Accessor != 0 {
		return a &^ Writable
	}
	return a
}

// Sealed strips Configurable.
func (a Attributes) Sealed() Attributes { return a &^ Configurable }

// Frozen strips Configurable and, for data properties, Writable.
func (a Attributes) Frozen() Attributes {
	a = a &^ Configurable
	if a&Accessor == 0 {
		a &^= Writable
	}
	return a
}

// SlotCount is the number of physical slots a property with these attributes
// occupies: accessors store getter and setter side by side.
func (a Attributes) SlotCount() uint32 {
	if a&Accessor != 0 {
		return 2
	}
	return 1
}

func (a Attributes) String() string {
	var b strings.Builder
	flag := func(set bool, c byte) {
		if set {
			b.WriteByte(c)
		} else {
			b.WriteByte('-')
		}
	}
	if a.IsAccessor() {
		b.WriteByte('a')
	} else {
		flag(a&Writable != 0, 'w')
	}
	flag(a.IsEnumerable(), 'e')
	flag(a.IsConfigurable(), 'c')
	return b.String()
}
