// Package arraystore holds the indexed elements of one object. Storage is
// either a dense circular buffer or a sparse treap; the two are observably
// identical and the switch between them is internal.
package arraystore

import (
	"fmt"

	"objmodel/pkg/config"
	"objmodel/pkg/errors"
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

const debugArrays = false

// Mode is the active representation.
type Mode uint8

const (
	Dense Mode = iota
	Sparse
)

func (m Mode) String() string {
	if m == Sparse {
		return "sparse"
	}
	return "dense"
}

// Storage is the element store of one object. Missing elements read as
// value.Empty. Length is one past the highest index ever written and not
// since truncated; it is not the script-visible length.
type Storage struct {
	cfg  config.ArrayConfig
	mode Mode

	// dense: logical index i lives at buf[(offset+i) % len(buf)]; every
	// position outside [0, length) holds Empty.
	buf    []value.Value
	attrs  []prop.Attributes // parallel to buf, nil until needed
	offset uint32

	tree *tree // sparse

	length  uint32
	count   uint32
	special uint32 // present elements whose attributes are not prop.Data
}

// New returns empty dense storage. Zero fields of cfg take their defaults.
func New(cfg config.ArrayConfig) *Storage {
	return &Storage{cfg: cfg.WithDefaults()}
}

func (s *Storage) Mode() Mode       { return s.mode }
func (s *Storage) Length() uint32   { return s.length }
func (s *Storage) Count() uint32    { return s.count }
func (s *Storage) Capacity() int    { return len(s.buf) }
func (s *Storage) HasSpecial() bool { return s.special > 0 }

func (s *Storage) phys(i uint32) uint32 {
	p := uint64(s.offset) + uint64(i)
	if n := uint64(len(s.buf)); p >= n {
		p -= n
	}
	return uint32(p)
}

// wantSparse reports whether writing index i would make a dense buffer
// pathological relative to the number of elements.
func (s *Storage) wantSparse(i uint32) bool {
	return i >= s.cfg.SparseMinIndex && uint64(i) > uint64(s.cfg.SparseRatio)*(uint64(s.count)+1)
}

// grow reallocates the dense buffer to hold at least need elements, in
// logical order starting at offset 0.
func (s *Storage) grow(need uint32) {
	if need <= uint32(len(s.buf)) {
		return
	}
	n := max(uint64(len(s.buf))*2, uint64(need), uint64(s.cfg.InitialCapacity))
	n = min(n, uint64(maxLength))
	buf := make([]value.Value, n)
	var attrs []prop.Attributes
	if s.attrs != nil {
		attrs = make([]prop.Attributes, n)
	}
	for i := uint32(0); i < s.length; i++ {
		p := s.phys(i)
		buf[i] = s.buf[p]
		if attrs != nil {
			attrs[i] = s.attrs[p]
		}
	}
	for i := uint64(s.length); i < n; i++ {
		buf[i] = value.Empty
		if attrs != nil {
			attrs[i] = prop.Data
		}
	}
	if debugArrays {
		fmt.Printf("[array] grow %d -> %d (length=%d)\n", len(s.buf), n, s.length)
	}
	s.buf, s.attrs, s.offset = buf, attrs, 0
}

func (s *Storage) ensureAttrs() {
	if s.attrs == nil && s.mode == Dense {
		s.attrs = make([]prop.Attributes, len(s.buf))
		for i := range s.attrs {
			s.attrs[i] = prop.Data
		}
	}
}

func (s *Storage) noteAttrs(before, after prop.Attributes, wasPresent bool) {
	if wasPresent && before != prop.Data {
		s.special--
	}
	if after != prop.Data {
		s.special++
	}
}

// lookup returns the element at i and its attributes.
func (s *Storage) lookup(i uint32) (value.Value, prop.Attributes, bool) {
	if i >= s.length {
		return value.Empty, prop.Data, false
	}
	if s.mode == Sparse {
		n := s.tree.find(i)
		if n == nil {
			return value.Empty, prop.Data, false
		}
		return s.tree.values[n.slot], n.attrs, true
	}
	p := s.phys(i)
	v := s.buf[p]
	if v.IsEmpty() {
		return v, prop.Data, false
	}
	if s.attrs != nil {
		return v, s.attrs[p], true
	}
	return v, prop.Data, true
}

// Get returns the element at i, or value.Empty for a hole.
func (s *Storage) Get(i uint32) value.Value {
	v, _, _ := s.lookup(i)
	return v
}

// Has reports whether i holds an element.
func (s *Storage) Has(i uint32) bool {
	_, _, ok := s.lookup(i)
	return ok
}

// Attributes returns the attributes of the element at i.
func (s *Storage) Attributes(i uint32) (prop.Attributes, bool) {
	_, a, ok := s.lookup(i)
	return a, ok
}

// Put writes v at i. It fails on non-writable or accessor elements and on
// indices outside the array-index range.
func (s *Storage) Put(i uint32, v value.Value) bool {
	if _, a, ok := s.lookup(i); ok {
		if !a.IsWritable() {
			return false
		}
		s.store(i, v, a)
		return true
	}
	return s.Define(i, v, prop.Data)
}

// Define writes v at i with attrs regardless of the current attributes.
// Writing Empty is a delete that ignores configurability.
func (s *Storage) Define(i uint32, v value.Value, attrs prop.Attributes) bool {
	if i > value.MaxArrayIndex {
		return false
	}
	if v.IsEmpty() {
		s.clear(i)
		return true
	}
	s.store(i, v, attrs.Normalized())
	return true
}

// store is the raw write used by every mutating path.
func (s *Storage) store(i uint32, v value.Value, attrs prop.Attributes) {
	if s.mode == Dense && i >= s.length && s.wantSparse(i) {
		s.ToSparse()
	}
	if s.mode == Sparse {
		if n := s.tree.find(i); n != nil {
			s.noteAttrs(n.attrs, attrs, true)
			s.tree.values[n.slot] = v
			n.attrs = attrs
		} else {
			s.tree.insert(i, v, attrs)
			s.count++
			s.noteAttrs(prop.Data, attrs, false)
		}
		s.length = max(s.length, i+1)
		return
	}
	if i >= s.length {
		s.grow(i + 1)
		s.length = i + 1
	}
	p := s.phys(i)
	old := s.buf[p]
	before := prop.Data
	if s.attrs != nil {
		before = s.attrs[p]
	}
	if old.IsEmpty() {
		s.count++
	}
	s.noteAttrs(before, attrs, !old.IsEmpty())
	s.buf[p] = v
	if attrs != prop.Data {
		s.ensureAttrs()
	}
	if s.attrs != nil {
		s.attrs[p] = attrs
	}
}

// clear removes the element at i unconditionally.
func (s *Storage) clear(i uint32) bool {
	if i >= s.length {
		return false
	}
	if s.mode == Sparse {
		n := s.tree.find(i)
		if n == nil {
			return false
		}
		s.noteAttrs(n.attrs, prop.Data, true)
		s.tree.remove(i)
		s.count--
		return true
	}
	p := s.phys(i)
	if s.buf[p].IsEmpty() {
		return false
	}
	if s.attrs != nil {
		s.noteAttrs(s.attrs[p], prop.Data, true)
		s.attrs[p] = prop.Data
	}
	s.buf[p] = value.Empty
	s.count--
	return true
}

// clearRange removes every element with index in [from, to). Sparse storage
// only visits the elements present.
func (s *Storage) clearRange(from, to uint32) {
	to = min(to, s.length)
	if from >= to {
		return
	}
	if s.mode == Sparse {
		l, r := split(s.tree.root, from)
		m, r := split(r, to)
		s.tree.root = merge(l, r)
		walk(m, func(n *node) bool {
			s.noteAttrs(n.attrs, prop.Data, true)
			s.tree.freeSlot(n.slot)
			s.count--
			return true
		})
		return
	}
	for i := from; i < to; i++ {
		s.clear(i)
	}
}

// Delete removes the element at i. It fails on non-configurable elements;
// deleting a hole succeeds.
func (s *Storage) Delete(i uint32) bool {
	if _, a, ok := s.lookup(i); ok && !a.IsConfigurable() {
		return false
	}
	s.clear(i)
	return true
}

// SetAttributes changes the attributes of an existing element.
func (s *Storage) SetAttributes(i uint32, attrs prop.Attributes) bool {
	v, _, ok := s.lookup(i)
	if !ok {
		return false
	}
	s.store(i, v, attrs.Normalized())
	return true
}

// Truncate removes elements from the top down to newLength, stopping above
// the first non-configurable element. It returns the resulting length.
func (s *Storage) Truncate(newLength uint32) uint32 {
	if newLength >= s.length {
		return s.length
	}
	if s.mode == Sparse {
		top := s.tree.cut(newLength)
		stop := newLength
		if s.special > 0 {
			walk(top, func(n *node) bool {
				if !n.attrs.IsConfigurable() {
					stop = n.key + 1
				}
				return true
			})
		}
		var kept *node
		if stop > newLength {
			kept, top = split(top, stop)
		}
		walk(top, func(n *node) bool {
			s.noteAttrs(n.attrs, prop.Data, true)
			s.tree.freeSlot(n.slot)
			s.count--
			return true
		})
		s.tree.graft(kept)
		s.length = stop
		return stop
	}
	for i := s.length; i > newLength; i-- {
		p := s.phys(i - 1)
		if !s.buf[p].IsEmpty() && s.attrs != nil && !s.attrs[p].IsConfigurable() {
			s.length = i
			return i
		}
		s.clear(i - 1)
	}
	s.length = newLength
	return newLength
}

// Push appends v at Length.
func (s *Storage) Push(v value.Value) error {
	if s.length == maxLength {
		return errors.NewRangeError("arraystore.Push", "array length exceeds %d", uint64(maxLength))
	}
	s.store(s.length, v, prop.Data)
	return nil
}

// Pop removes and returns the element at Length-1, shrinking Length. Holes
// pop as Empty. It fails when the storage is empty or the element is not
// configurable.
func (s *Storage) Pop() (value.Value, bool) {
	if s.length == 0 {
		return value.Empty, false
	}
	last := s.length - 1
	v, a, ok := s.lookup(last)
	if ok && !a.IsConfigurable() {
		return value.Empty, false
	}
	s.clear(last)
	s.length = last
	return v, true
}

// PushFront inserts v at index 0, shifting every element up by one. It
// fails with an invariant error when elements carry non-default
// attributes, which would have to move with their values.
func (s *Storage) PushFront(v value.Value) error {
	if s.length == maxLength {
		return errors.NewRangeError("arraystore.PushFront", "array length exceeds %d", uint64(maxLength))
	}
	if s.special > 0 {
		return errors.NewInvariantError("arraystore.PushFront", "elements with non-default attributes cannot shift")
	}
	if s.mode == Sparse {
		s.tree.shift(0, 1)
		s.tree.insert(0, v, prop.Data)
		s.length++
		s.count++
		return nil
	}
	if s.length == uint32(len(s.buf)) {
		s.grow(s.length + 1)
	}
	if s.offset == 0 {
		s.offset = uint32(len(s.buf)) - 1
	} else {
		s.offset--
	}
	s.buf[s.offset] = v
	s.length++
	s.count++
	return nil
}

// PopFront removes and returns the element at index 0, shifting every
// other element down by one. Holes pop as Empty.
func (s *Storage) PopFront() (value.Value, error) {
	if s.length == 0 {
		return value.Empty, nil
	}
	if s.special > 0 {
		return value.Empty, errors.NewInvariantError("arraystore.PopFront", "elements with non-default attributes cannot shift")
	}
	if s.mode == Sparse {
		v := value.Empty
		if n := s.tree.find(0); n != nil {
			v = s.tree.values[n.slot]
			s.tree.remove(0)
			s.count--
		}
		s.tree.shift(0, -1)
		s.length--
		return v, nil
	}
	v := s.buf[s.offset]
	if !v.IsEmpty() {
		s.count--
	}
	s.buf[s.offset] = value.Empty
	s.offset = s.phys(1)
	s.length--
	if s.length == 0 {
		s.offset = 0
	}
	return v, nil
}

// Append copies the first n elements of other to indices at, at+1, ...
// Holes stay holes. Existing target elements keep their attributes. It
// leaves s unchanged and fails with a range error when at+n leaves the
// array-index range, and with an invariant error when a source element is an
// accessor or a target element it would overwrite is not writable.
func (s *Storage) Append(at uint32, other *Storage, n uint32) error {
	if _, ok := checkedAdd(uint64(at), uint64(n), uint64(maxLength)); !ok {
		return errors.NewRangeError("arraystore.Append", "index %d + count %d exceeds %d", at, n, uint64(maxLength))
	}
	n = clamp(n, 0, other.length)
	if n == 0 {
		return nil
	}
	src := other
	if other == s {
		src = s.snapshot()
	}
	var bad error
	src.ForEach(func(i uint32, _ value.Value, a prop.Attributes) bool {
		if i >= n {
			return false
		}
		if a.IsAccessor() {
			bad = errors.NewInvariantError("arraystore.Append", "source element %d is an accessor", i)
			return false
		}
		if _, ta, ok := s.lookup(at + i); ok && !ta.IsWritable() {
			bad = errors.NewInvariantError("arraystore.Append", "element %d is not writable", at+i)
			return false
		}
		return true
	})
	if bad != nil {
		return bad
	}
	end := at + n
	if s.mode == Dense && end > s.length && !s.wantSparse(end-1) {
		s.grow(end)
	}
	src.ForEach(func(i uint32, v value.Value, _ prop.Attributes) bool {
		if i >= n {
			return false
		}
		attrs := prop.Data
		if _, ta, ok := s.lookup(at + i); ok {
			attrs = ta
		}
		s.store(at+i, v, attrs)
		return true
	})
	s.length = max(s.length, end)
	return nil
}

// snapshot returns a sparse copy of the elements of s.
func (s *Storage) snapshot() *Storage {
	c := New(s.cfg)
	c.ToSparse()
	s.ForEach(func(i uint32, v value.Value, attrs prop.Attributes) bool {
		c.store(i, v, attrs)
		return true
	})
	c.length = s.length
	return c
}

// ForEach calls fn for every element in index order until fn returns false.
// fn must not modify s.
func (s *Storage) ForEach(fn func(i uint32, v value.Value, attrs prop.Attributes) bool) {
	if s.mode == Sparse {
		walk(s.tree.root, func(n *node) bool {
			return fn(n.key, s.tree.values[n.slot], n.attrs)
		})
		return
	}
	for i := uint32(0); i < s.length; i++ {
		p := s.phys(i)
		if s.buf[p].IsEmpty() {
			continue
		}
		a := prop.Data
		if s.attrs != nil {
			a = s.attrs[p]
		}
		if !fn(i, s.buf[p], a) {
			return
		}
	}
}

// Nth returns the k-th present element in index order.
func (s *Storage) Nth(k uint32) (uint32, value.Value, bool) {
	if k >= s.count {
		return 0, value.Empty, false
	}
	if s.mode == Sparse {
		n := s.tree.nth(k)
		return n.key, s.tree.values[n.slot], true
	}
	var idx uint32
	var v value.Value
	found := false
	s.ForEach(func(i uint32, e value.Value, _ prop.Attributes) bool {
		if k == 0 {
			idx, v, found = i, e, true
			return false
		}
		k--
		return true
	})
	return idx, v, found
}

// Seal makes every element non-configurable.
func (s *Storage) Seal() { s.mapAttrs(prop.Attributes.Sealed) }

// Freeze makes every element non-configurable and non-writable.
func (s *Storage) Freeze() { s.mapAttrs(prop.Attributes.Frozen) }

func (s *Storage) mapAttrs(fn func(prop.Attributes) prop.Attributes) {
	if s.count == 0 {
		return
	}
	if s.mode == Sparse {
		walk(s.tree.root, func(n *node) bool {
			a := fn(n.attrs)
			s.noteAttrs(n.attrs, a, true)
			n.attrs = a
			return true
		})
		return
	}
	s.ensureAttrs()
	for i := uint32(0); i < s.length; i++ {
		p := s.phys(i)
		if s.buf[p].IsEmpty() {
			continue
		}
		a := fn(s.attrs[p])
		s.noteAttrs(s.attrs[p], a, true)
		s.attrs[p] = a
	}
}

// ToSparse converts dense storage to the tree representation.
func (s *Storage) ToSparse() {
	if s.mode == Sparse {
		return
	}
	t := newTree()
	for i := uint32(0); i < s.length; i++ {
		p := s.phys(i)
		if s.buf[p].IsEmpty() {
			continue
		}
		a := prop.Data
		if s.attrs != nil {
			a = s.attrs[p]
		}
		t.insert(i, s.buf[p], a)
	}
	if debugArrays {
		fmt.Printf("[array] to sparse: length=%d count=%d\n", s.length, s.count)
	}
	s.mode, s.tree = Sparse, t
	s.buf, s.attrs, s.offset = nil, nil, 0
}

// ToDense converts sparse storage back to a buffer. It refuses, returning
// false, when the buffer would be pathological for the element count.
func (s *Storage) ToDense() bool {
	if s.mode == Dense {
		return true
	}
	if s.length > 0 && s.wantSparse(s.length-1) {
		return false
	}
	s.densify(s.length)
	return true
}

// densify rebuilds the buffer from the tree with room for n >= Length
// elements.
func (s *Storage) densify(n uint32) {
	t := s.tree
	s.mode, s.tree = Dense, nil
	s.buf = make([]value.Value, max(n, s.cfg.InitialCapacity))
	for i := range s.buf {
		s.buf[i] = value.Empty
	}
	s.offset = 0
	if s.special > 0 {
		s.ensureAttrs()
	}
	walk(t.root, func(nd *node) bool {
		s.buf[nd.key] = t.values[nd.slot]
		if s.attrs != nil {
			s.attrs[nd.key] = nd.attrs
		}
		return true
	})
	if debugArrays {
		fmt.Printf("[array] to dense: length=%d count=%d\n", s.length, s.count)
	}
}

// MarkObjects marks every element.
func (s *Storage) MarkObjects(m value.Marker) {
	if s.mode == Sparse {
		value.MarkValues(m, s.tree.values)
		return
	}
	value.MarkValues(m, s.buf)
}
