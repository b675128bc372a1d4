// Package shape implements hidden classes: immutable descriptors mapping
// property names to slots and attributes. Objects built by the same sequence
// of operations end up on the same *Shape.
package shape

import (
	"fmt"

	"objmodel/pkg/jsstring"
	"objmodel/pkg/value"
)

const debugShapes = false

// Class identifies the kind of object a shape describes. Shapes with
// different classes never share transitions.
type Class uint8

const (
	ClassObject Class = iota
	ClassArray
	ClassFunction
	ClassContext
	ClassError
)

func (c Class) String() string {
	switch c {
	case ClassObject:
		return "Object"
	case ClassArray:
		return "Array"
	case ClassFunction:
		return "Function"
	case ClassContext:
		return "Context"
	case ClassError:
		return "Error"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// Table owns every shape of one engine. All shapes are reachable from the
// canonical empty root through transitions or memo links.
type Table struct {
	strings     *jsstring.Interner
	root        *Shape
	nextID      uint32
	protoIDs    map[value.Managed]uint32
	nextProtoID uint32
}

// NewTable returns a table whose member names are interned in strings.
func NewTable(strings *jsstring.Interner) *Table {
	if strings == nil {
		strings = jsstring.NewInterner()
	}
	t := &Table{strings: strings, protoIDs: make(map[value.Managed]uint32)}
	t.root = t.newShape(nil, &layout{index: map[uint32]int{}})
	t.root.proto = value.Null
	t.root.extensible = true
	return t
}

// Empty returns the canonical root: class Object, null prototype, extensible,
// no members.
func (t *Table) Empty() *Shape { return t.root }

// Initial returns the member-less shape for the given prototype and class.
func (t *Table) Initial(proto value.Value, class Class) *Shape {
	return t.root.ChangeClass(class).ChangePrototype(proto)
}

// Strings returns the interner used for member names.
func (t *Table) Strings() *jsstring.Interner { return t.strings }

// Intern returns the canonical member name for raw.
func (t *Table) Intern(raw string) *jsstring.String { return t.strings.InternString(raw) }

// Len returns the number of shapes created so far.
func (t *Table) Len() int { return int(t.nextID) }

func (t *Table) newShape(parent *Shape, l *layout) *Shape {
	t.nextID++
	s := &Shape{table: t, id: t.nextID, parent: parent, layout: l}
	if parent != nil {
		s.n = parent.n
		s.size = parent.size
		s.orphans = parent.orphans
		s.proto = parent.proto
		s.class = parent.class
		s.extensible = parent.extensible
	}
	return s
}

// name returns the canonical instance of name in this table's interner.
// Names canonical in another interner are re-interned here so their ids
// never collide with ours.
func (t *Table) name(name *jsstring.String) *jsstring.String {
	return t.strings.Intern(name)
}

// findName returns the canonical instance of name without interning it.
func (t *Table) findName(name *jsstring.String) (*jsstring.String, bool) {
	return t.strings.Find(name)
}

func (t *Table) protoID(v value.Value) uint32 {
	m := v.AsManaged()
	if m == nil {
		return 0
	}
	if id, ok := t.protoIDs[m]; ok {
		return id
	}
	t.nextProtoID++
	t.protoIDs[m] = t.nextProtoID
	return t.nextProtoID
}

// MarkObjects walks every shape from the canonical root, marking prototypes
// and member names. Interior shapes stay alive regardless of which objects
// still use them.
func (t *Table) MarkObjects(m value.Marker) {
	stack := []*Shape{t.root}
	seen := make(map[*Shape]struct{})
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		s.MarkObjects(m)
		for _, tr := range s.transitions {
			stack = append(stack, tr.to)
		}
		if s.sealed != nil {
			stack = append(stack, s.sealed)
		}
		if s.frozen != nil {
			stack = append(stack, s.frozen)
		}
	}
}
