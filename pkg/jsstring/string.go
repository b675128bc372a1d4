// Package jsstring implements the runtime's string type: a rope of UTF-16
// code units built from leaf, concatenation and substring nodes. Copying is
// deferred until something needs the flat form (hashing, indexed access,
// interop), at which point the node is flattened in place.
package jsstring

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"objmodel/pkg/errors"
	"objmodel/pkg/value"
)

const debugRope = false

type nodeKind uint8

const (
	leafNode nodeKind = iota
	concatNode
	substringNode
)

const (
	flagHashValid uint8 = 1 << iota
	flagArrayIndex
)

// String is a managed string cell. The node kind may change from concat or
// substring to leaf when it is flattened; the *String identity never does.
type String struct {
	kind nodeKind

	chars []uint16 // leaf

	left, right *String // concat

	base   *String // substring; never itself a substring
	offset uint32

	length  uint32
	largest uint32 // longest leaf (or substring) length in this subtree
	depth   uint16

	hash  uint32
	flags uint8
	owner *Interner // nil when not interned
	id    uint32    // unique within owner
}

// Limits bounds rope growth.
type Limits struct {
	FlattenMinLength uint32
	FlattenRatio     uint32
	MaxDepth         uint16
	MaxLength        uint32
}

// DefaultLimits are the limits used by the package-level Concat.
var DefaultLimits = Limits{
	FlattenMinLength: 256,
	FlattenRatio:     64,
	MaxDepth:         512,
	MaxLength:        1<<30 - 1,
}

// New returns a leaf holding the UTF-16 encoding of s.
func New(s string) *String {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	var chars []uint16
	if ascii {
		chars = make([]uint16, len(s))
		for i := 0; i < len(s); i++ {
			chars[i] = uint16(s[i])
		}
	} else {
		chars = utf16.Encode([]rune(s))
	}
	return newLeaf(chars)
}

// FromUTF16 returns a leaf holding a copy of units.
func FromUTF16(units []uint16) *String {
	chars := make([]uint16, len(units))
	copy(chars, units)
	return newLeaf(chars)
}

func newLeaf(chars []uint16) *String {
	n := uint32(len(chars))
	return &String{kind: leafNode, chars: chars, length: n, largest: n}
}

// Concat joins a and b using DefaultLimits.
func Concat(a, b *String) (*String, error) { return DefaultLimits.Concat(a, b) }

// Concat joins a and b in O(1) by allocating a concatenation node. The node
// is flattened immediately when it would be long relative to its largest
// piece, or too deep, so later traversals stay cheap.
func (l Limits) Concat(a, b *String) (*String, error) {
	total := uint64(a.length) + uint64(b.length)
	if total > uint64(l.MaxLength) {
		return nil, errors.NewRangeError("jsstring.Concat", "invalid string length %d", total)
	}
	if a.length == 0 {
		return b, nil
	}
	if b.length == 0 {
		return a, nil
	}
	s := &String{
		kind:    concatNode,
		left:    a,
		right:   b,
		length:  uint32(total),
		largest: max(a.largest, b.largest),
		depth:   max(a.depth, b.depth) + 1,
	}
	if (s.length > l.FlattenMinLength && uint64(s.length) >= uint64(l.FlattenRatio)*uint64(s.largest)) || s.depth > l.MaxDepth {
		if debugRope {
			fmt.Printf("[rope] eager flatten len=%d largest=%d depth=%d\n", s.length, s.largest, s.depth)
		}
		s.Flatten()
	}
	return s, nil
}

// Substring returns the n code units of s starting at from, clamped to the
// string bounds. The result references s rather than copying it.
func Substring(s *String, from, n uint32) *String {
	if from > s.length {
		from = s.length
	}
	if n > s.length-from {
		n = s.length - from
	}
	if from == 0 && n == s.length {
		return s
	}
	if n == 0 {
		return newLeaf(nil)
	}
	base := s
	if base.kind == substringNode {
		from += base.offset
		base = base.base
	}
	return &String{
		kind:    substringNode,
		base:    base,
		offset:  from,
		length:  n,
		largest: n,
		depth:   base.depth + 1,
	}
}

// Len returns the length in UTF-16 code units.
func (s *String) Len() int { return int(s.length) }

// Depth returns the rope depth; leaves have depth 0.
func (s *String) Depth() int { return int(s.depth) }

// IsFlat reports whether s is currently a leaf.
func (s *String) IsFlat() bool { return s.kind == leafNode }

// Flatten returns the contiguous code units of s, converting s into a leaf on
// first call. The returned slice is shared with s and must not be modified.
func (s *String) Flatten() []uint16 {
	if s.kind == leafNode {
		return s.chars
	}
	buf := make([]uint16, s.length)
	copyRange(buf, s, 0, s.length)
	s.kind = leafNode
	s.chars = buf
	s.left, s.right, s.base = nil, nil, nil
	s.offset = 0
	s.depth = 0
	s.largest = s.length
	return buf
}

type copyFrame struct {
	s       *String
	from, n uint32
}

// copyRange writes n units of s starting at from into dst without recursion.
func copyRange(dst []uint16, s *String, from, n uint32) {
	stack := []copyFrame{{s, from, n}}
	pos := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.n == 0 {
			continue
		}
		switch f.s.kind {
		case leafNode:
			pos += copy(dst[pos:], f.s.chars[f.from:f.from+f.n])
		case substringNode:
			stack = append(stack, copyFrame{f.s.base, f.s.offset + f.from, f.n})
		case concatNode:
			ll := f.s.left.length
			end := f.from + f.n
			if end > ll {
				rs := max(f.from, ll)
				stack = append(stack, copyFrame{f.s.right, rs - ll, end - rs})
			}
			if f.from < ll {
				stack = append(stack, copyFrame{f.s.left, f.from, min(end, ll) - f.from})
			}
		}
	}
}

// CharAt returns the code unit at i, flattening s.
func (s *String) CharAt(i int) (uint16, bool) {
	if i < 0 || i >= int(s.length) {
		return 0, false
	}
	return s.Flatten()[i], true
}

// String decodes s to Go UTF-8. Lone surrogates become U+FFFD.
func (s *String) String() string {
	chars := s.Flatten()
	ascii := true
	for _, c := range chars {
		if c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		b := make([]byte, len(chars))
		for i, c := range chars {
			b[i] = byte(c)
		}
		return string(b)
	}
	return string(utf16.Decode(chars))
}

// --- value.Managed and coercion hooks ---

// MarkObjects marks the nodes this rope still references.
func (s *String) MarkObjects(m value.Marker) {
	switch s.kind {
	case concatNode:
		m.Mark(s.left)
		m.Mark(s.right)
	case substringNode:
		m.Mark(s.base)
	}
}

func (s *String) TypeOf() string { return "string" }

func (s *String) Truthy() bool { return s.length > 0 }

func (s *String) ToNumber() float64 { return parseNumber(s.String()) }

func (s *String) EqualsManaged(other value.Managed) bool {
	o, ok := other.(*String)
	return ok && s.Equals(o)
}

// Value wraps s in a Value.
func (s *String) Value() value.Value { return value.FromManaged(s) }

// FromValue returns the string cell referenced by v, if any.
func FromValue(v value.Value) (*String, bool) {
	s, ok := v.AsManaged().(*String)
	return s, ok
}
