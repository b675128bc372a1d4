package shape

import (
	"fmt"
	"slices"

	"objmodel/pkg/jsstring"
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

// Member is one named property of a shape.
type Member struct {
	Name  *jsstring.String
	Slot  uint32
	Attrs prop.Attributes
}

// layout is a member table that may be shared by a chain of shapes. A shape
// sees the first n entries; only the shape whose n equals len(members) may
// append in place, everyone else copies its prefix first.
type layout struct {
	members []Member
	index   map[uint32]int // name id -> position in members
}

func (l *layout) prefix(n int) *layout {
	c := &layout{members: make([]Member, n, n+1), index: make(map[uint32]int, n+1)}
	copy(c.members, l.members[:n])
	for i, m := range c.members {
		c.index[m.Name.ID()] = i
	}
	return c
}

type transitionKind uint8

const (
	addTransition transitionKind = iota
	changeTransition
	removeTransition
	protoTransition
	classTransition
	preventExtensionsTransition
)

type transition struct {
	kind  transitionKind
	key   uint32
	attrs prop.Attributes
	to    *Shape
}

func compareTransition(a transition, kind transitionKind, key uint32, attrs prop.Attributes) int {
	switch {
	case a.kind != kind:
		return int(a.kind) - int(kind)
	case a.key != key:
		if a.key < key {
			return -1
		}
		return 1
	}
	return int(a.attrs) - int(attrs)
}

// Shape is an immutable property layout. Only its memo links and transition
// list grow after it is published.
type Shape struct {
	table  *Table
	id     uint32
	parent *Shape

	layout  *layout
	n       int
	size    uint32 // physical slots, orphans included
	orphans uint32

	proto      value.Value
	class      Class
	extensible bool

	transitions []transition
	sealed      *Shape
	frozen      *Shape
}

func (s *Shape) ID() uint32             { return s.id }
func (s *Shape) Parent() *Shape         { return s.parent }
func (s *Shape) Table() *Table          { return s.table }
func (s *Shape) Size() uint32           { return s.size }
func (s *Shape) Len() int               { return s.n }
func (s *Shape) Orphans() uint32        { return s.orphans }
func (s *Shape) Prototype() value.Value { return s.proto }
func (s *Shape) Class() Class           { return s.class }
func (s *Shape) Extensible() bool       { return s.extensible }
func (s *Shape) members() []Member      { return s.layout.members[:s.n] }

func (s *Shape) String() string {
	return fmt.Sprintf("Shape#%d(%s, %d members)", s.id, s.class, s.n)
}

func (s *Shape) lookup(kind transitionKind, key uint32, attrs prop.Attributes) (int, bool) {
	return slices.BinarySearchFunc(s.transitions, transition{}, func(a, _ transition) int {
		return compareTransition(a, kind, key, attrs)
	})
}

// transition returns the existing child for the edge or builds one with
// create and records it in sorted position.
func (s *Shape) transition(kind transitionKind, key uint32, attrs prop.Attributes, create func() *Shape) *Shape {
	i, ok := s.lookup(kind, key, attrs)
	if ok {
		return s.transitions[i].to
	}
	child := create()
	s.transitions = slices.Insert(s.transitions, i, transition{kind: kind, key: key, attrs: attrs, to: child})
	if debugShapes {
		fmt.Printf("[shape] #%d -> #%d kind=%d key=%d attrs=%s\n", s.id, child.id, kind, key, attrs)
	}
	return child
}

// Find returns the slot and attributes of name.
func (s *Shape) Find(name *jsstring.String) (uint32, prop.Attributes, bool) {
	key, ok := s.table.findName(name)
	if !ok {
		return 0, 0, false
	}
	i, ok := s.layout.index[key.ID()]
	if !ok || i >= s.n {
		return 0, 0, false
	}
	m := s.layout.members[i]
	return m.Slot, m.Attrs, true
}

// FindString is Find for a Go string name.
func (s *Shape) FindString(name string) (uint32, prop.Attributes, bool) {
	return s.Find(jsstring.New(name))
}

// Keys returns the member names in slot order.
func (s *Shape) Keys() []*jsstring.String {
	keys := make([]*jsstring.String, s.n)
	for i, m := range s.members() {
		keys[i] = m.Name
	}
	return keys
}

// Members returns a copy of the live members in slot order.
func (s *Shape) Members() []Member {
	return slices.Clone(s.members())
}

// AddMember returns the shape with name appended at slot Size(). The name
// must not already be present; if it is, s and the existing slot are
// returned unchanged. Extensibility is enforced by the caller.
func (s *Shape) AddMember(name *jsstring.String, attrs prop.Attributes) (*Shape, uint32) {
	name = s.table.name(name)
	attrs = attrs.Normalized()
	if i, ok := s.layout.index[name.ID()]; ok && i < s.n {
		return s, s.layout.members[i].Slot
	}
	slot := s.size
	next := s.transition(addTransition, name.ID(), attrs, func() *Shape {
		l := s.layout
		if len(l.members) != s.n {
			l = l.prefix(s.n)
		}
		l.members = append(l.members, Member{Name: name, Slot: slot, Attrs: attrs})
		l.index[name.ID()] = len(l.members) - 1
		c := s.table.newShape(s, l)
		c.n = s.n + 1
		c.size = s.size + attrs.SlotCount()
		return c
	})
	return next, slot
}

// ChangeMember returns the shape with the attributes of name replaced. When
// the change moves between data and accessor the shape is rebuilt from its
// initial shape, slots shift, and remapped is true; callers migrate values
// with SlotMap. Missing names return s unchanged.
func (s *Shape) ChangeMember(name *jsstring.String, attrs prop.Attributes) (next *Shape, remapped bool) {
	key, ok := s.table.findName(name)
	if !ok {
		return s, false
	}
	i, ok := s.layout.index[key.ID()]
	if !ok || i >= s.n {
		return s, false
	}
	attrs = attrs.Normalized()
	old := s.layout.members[i]
	if old.Attrs == attrs {
		return s, false
	}
	if old.Attrs.IsAccessor() != attrs.IsAccessor() {
		return s.rebuild(func(m Member) Member {
			if m.Name == key {
				m.Attrs = attrs
			}
			return m
		}), true
	}
	return s.transition(changeTransition, key.ID(), attrs, func() *Shape {
		l := s.layout.prefix(s.n)
		l.members[i].Attrs = attrs
		c := s.table.newShape(s, l)
		return c
	}), false
}

// RemoveMember returns the shape without name. The slot becomes an orphan:
// Size is unchanged and the slot is never handed out again by this chain.
func (s *Shape) RemoveMember(name *jsstring.String) *Shape {
	key, ok := s.table.findName(name)
	if !ok {
		return s
	}
	i, ok := s.layout.index[key.ID()]
	if !ok || i >= s.n {
		return s
	}
	return s.transition(removeTransition, key.ID(), 0, func() *Shape {
		src := s.members()
		l := &layout{members: make([]Member, 0, s.n), index: make(map[uint32]int, s.n)}
		for j, m := range src {
			if j == i {
				continue
			}
			l.index[m.Name.ID()] = len(l.members)
			l.members = append(l.members, m)
		}
		c := s.table.newShape(s, l)
		c.n = s.n - 1
		c.orphans = s.orphans + src[i].Attrs.SlotCount()
		return c
	})
}

// ChangePrototype returns the shape with prototype proto.
func (s *Shape) ChangePrototype(proto value.Value) *Shape {
	id := s.table.protoID(proto)
	if id == s.table.protoID(s.proto) {
		return s
	}
	return s.transition(protoTransition, id, 0, func() *Shape {
		c := s.table.newShape(s, s.layout)
		c.proto = proto
		return c
	})
}

// ChangeClass returns the shape with object class c.
func (s *Shape) ChangeClass(class Class) *Shape {
	if class == s.class {
		return s
	}
	return s.transition(classTransition, uint32(class), 0, func() *Shape {
		c := s.table.newShape(s, s.layout)
		c.class = class
		return c
	})
}

// PreventExtensions returns the non-extensible variant of s.
func (s *Shape) PreventExtensions() *Shape {
	if !s.extensible {
		return s
	}
	return s.transition(preventExtensionsTransition, 0, 0, func() *Shape {
		c := s.table.newShape(s, s.layout)
		c.extensible = false
		return c
	})
}

// Sealed returns the non-extensible variant of s with every member
// non-configurable. The result is memoised on s.
func (s *Shape) Sealed() *Shape {
	if s.sealed != nil {
		return s.sealed
	}
	if s.IsSealed() {
		s.sealed = s
		return s
	}
	s.sealed = s.derive(prop.Attributes.Sealed)
	s.sealed.sealed = s.sealed
	return s.sealed
}

// Frozen returns the sealed variant of s with every data member read-only.
// It is always derived from Sealed, so freezing directly and sealing then
// freezing meet at the same shape. The result is memoised on s.
func (s *Shape) Frozen() *Shape {
	if s.frozen != nil {
		return s.frozen
	}
	if s.IsFrozen() {
		s.frozen = s
		return s
	}
	if sealed := s.Sealed(); sealed != s {
		s.frozen = sealed.Frozen()
		return s.frozen
	}
	s.frozen = s.derive(prop.Attributes.Frozen)
	s.frozen.frozen = s.frozen
	s.frozen.sealed = s.frozen
	return s.frozen
}

// derive builds an off-tree shape with the same slots and transformed
// attributes.
func (s *Shape) derive(fn func(prop.Attributes) prop.Attributes) *Shape {
	l := s.layout.prefix(s.n)
	for i := range l.members {
		l.members[i].Attrs = fn(l.members[i].Attrs)
	}
	c := s.table.newShape(s, l)
	c.extensible = false
	return c
}

// IsSealed reports whether s is non-extensible with no configurable member.
func (s *Shape) IsSealed() bool {
	if s.extensible {
		return false
	}
	for _, m := range s.members() {
		if m.Attrs.IsConfigurable() {
			return false
		}
	}
	return true
}

// IsFrozen reports whether s is sealed and no data member is writable.
func (s *Shape) IsFrozen() bool {
	if !s.IsSealed() {
		return false
	}
	for _, m := range s.members() {
		if m.Attrs.IsWritable() {
			return false
		}
	}
	return true
}

// rebuild replays the members of s onto its initial shape, applying change
// to each, and returns the resulting shape. Orphaned slots disappear.
func (s *Shape) rebuild(change func(Member) Member) *Shape {
	r := s.table.Initial(s.proto, s.class)
	for _, m := range s.members() {
		m = change(m)
		r, _ = r.AddMember(m.Name, m.Attrs)
	}
	if !s.extensible {
		r = r.PreventExtensions()
	}
	if debugShapes {
		fmt.Printf("[shape] rebuilt #%d as #%d (%d slots -> %d)\n", s.id, r.id, s.size, r.size)
	}
	return r
}

// Compacted returns a shape with the same members and no orphaned slots,
// together with the slot map from the result to s.
func (s *Shape) Compacted() (*Shape, []int) {
	if s.orphans == 0 {
		return s, identity(s.size)
	}
	r := s.rebuild(func(m Member) Member { return m })
	return r, r.SlotMap(s)
}

func identity(n uint32) []int {
	m := make([]int, n)
	for i := range m {
		m[i] = i
	}
	return m
}

// SlotMap returns, for each slot of s, the slot of old holding the same
// member value, or -1 when the member is new or changed between data and
// accessor.
func (s *Shape) SlotMap(old *Shape) []int {
	m := make([]int, s.size)
	for i := range m {
		m[i] = -1
	}
	for _, nm := range s.members() {
		j, ok := old.layout.index[nm.Name.ID()]
		if !ok || j >= old.n {
			continue
		}
		om := old.layout.members[j]
		if om.Attrs.IsAccessor() != nm.Attrs.IsAccessor() {
			continue
		}
		for k := uint32(0); k < nm.Attrs.SlotCount(); k++ {
			m[nm.Slot+k] = int(om.Slot + k)
		}
	}
	return m
}

// MarkObjects marks the prototype and member names of s.
func (s *Shape) MarkObjects(m value.Marker) {
	value.MarkValue(m, s.proto)
	for _, mem := range s.members() {
		m.Mark(mem.Name)
	}
}
