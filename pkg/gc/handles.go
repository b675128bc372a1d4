package gc

import "objmodel/pkg/value"

// Handle keeps a value reachable from outside the heap. Persistent handles
// are roots; weak handles are cleared to undefined when their target dies.
// Handles of one kind are singly linked into a list rooted in the Heap.
type Handle struct {
	heap     *Heap
	target   value.Value
	next     *Handle
	weak     bool
	linked   bool
	released bool
	cleared  bool
}

// Get returns the target, or undefined once a weak target died or the
// handle was released.
func (h *Handle) Get() value.Value { return h.target }

// Set retargets the handle. A cleared weak handle rejoins the weak list.
func (h *Handle) Set(v value.Value) {
	if h.released {
		return
	}
	h.target = v
	h.cleared = false
	if !h.linked {
		h.heap.weak.push(h)
	}
}

// IsWeak reports whether h is a weak handle.
func (h *Handle) IsWeak() bool { return h.weak }

// Cleared reports whether the collector nulled a weak target.
func (h *Handle) Cleared() bool { return h.cleared }

// Release drops the handle. It is unlinked from its list at the next
// collection.
func (h *Handle) Release() {
	h.released = true
	h.target = value.Undefined
}

type handleList struct {
	head *Handle
	n    int
}

func (l *handleList) push(h *Handle) {
	h.next = l.head
	h.linked = true
	l.head = h
	l.n++
}

func (l *handleList) each(fn func(*Handle)) {
	for h := l.head; h != nil; h = h.next {
		fn(h)
	}
}

// unlink removes every handle for which drop returns true and returns how
// many were removed.
func (l *handleList) unlink(drop func(*Handle) bool) int {
	removed := 0
	link := &l.head
	for h := *link; h != nil; h = *link {
		if drop(h) {
			*link = h.next
			h.next = nil
			h.linked = false
			removed++
			continue
		}
		link = &h.next
	}
	l.n -= removed
	return removed
}

// NewPersistent returns a root handle for v.
func (hp *Heap) NewPersistent(v value.Value) *Handle {
	h := &Handle{heap: hp, target: v}
	hp.persistent.push(h)
	return h
}

// NewWeak returns a handle for v that does not keep v alive.
func (hp *Heap) NewWeak(v value.Value) *Handle {
	h := &Handle{heap: hp, target: v, weak: true}
	hp.weak.push(h)
	return h
}

// clearWeak nulls weak targets that were not marked. Entries stay linked
// until sweepHandles.
func (hp *Heap) clearWeak(ms *MarkStack) int {
	n := 0
	hp.weak.each(func(h *Handle) {
		c := h.target.AsManaged()
		if h.released || c == nil {
			return
		}
		if _, ok := hp.cells[c]; ok && !ms.IsMarked(c) {
			h.target = value.Undefined
			h.cleared = true
			n++
		}
	})
	return n
}

// sweepHandles unlinks released persistent handles and released or cleared
// weak handles.
func (hp *Heap) sweepHandles() int {
	n := hp.persistent.unlink(func(h *Handle) bool { return h.released })
	n += hp.weak.unlink(func(h *Handle) bool { return h.released || h.cleared })
	return n
}
