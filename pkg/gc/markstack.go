// Package gc is the collector's side of the object model: a mark stack
// handed to every MarkObjects hook, a registry of allocated cells, root
// sets, and the persistent and weak handle lists hosts use to hold values
// from outside the heap.
package gc

import (
	"fmt"

	"objmodel/pkg/value"
)

const debugGC = false

// MarkStack collects cells to visit during marking. Pushing past the limit
// while roots are being marked drains the stack inline, so a huge root set
// never grows it without bound.
type MarkStack struct {
	stack    []value.Managed
	marked   map[value.Managed]struct{}
	limit    int
	draining bool
	drains   int
}

// NewMarkStack returns an empty stack that drains inline beyond limit
// entries. A limit <= 0 disables inline draining.
func NewMarkStack(limit int) *MarkStack {
	return &MarkStack{marked: make(map[value.Managed]struct{}), limit: limit}
}

// Mark pushes c unless it is nil or already marked.
func (ms *MarkStack) Mark(c value.Managed) {
	if c == nil {
		return
	}
	if _, ok := ms.marked[c]; ok {
		return
	}
	ms.marked[c] = struct{}{}
	ms.stack = append(ms.stack, c)
	if ms.limit > 0 && len(ms.stack) > ms.limit && !ms.draining {
		ms.drains++
		if debugGC {
			fmt.Printf("[gc] mark stack over %d entries, draining inline\n", ms.limit)
		}
		ms.Drain()
	}
}

// MarkValue marks v's cell, if any.
func (ms *MarkStack) MarkValue(v value.Value) { value.MarkValue(ms, v) }

// Drain pops cells until the stack is empty, letting each mark its
// children.
func (ms *MarkStack) Drain() {
	ms.draining = true
	for len(ms.stack) > 0 {
		n := len(ms.stack) - 1
		c := ms.stack[n]
		ms.stack[n] = nil
		ms.stack = ms.stack[:n]
		c.MarkObjects(ms)
	}
	ms.draining = false
}

// IsMarked reports whether c has been reached.
func (ms *MarkStack) IsMarked(c value.Managed) bool {
	_, ok := ms.marked[c]
	return ok
}

// Len returns the number of pending cells.
func (ms *MarkStack) Len() int { return len(ms.stack) }

// Marked returns the number of cells reached so far.
func (ms *MarkStack) Marked() int { return len(ms.marked) }

// InlineDrains returns how often the limit forced an inline drain.
func (ms *MarkStack) InlineDrains() int { return ms.drains }
