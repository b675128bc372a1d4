package ordered

import "objmodel/pkg/value"

// Cursor walks a Table in insertion order while the table is mutated. The
// pivot is the index of the entry returned last, -1 before the first call.
type Cursor struct {
	table      *Table
	pivot      int
	outOfRange bool
	closed     bool
}

// Observe returns a cursor positioned before the first entry and registers
// it with t. Close it when done.
func (t *Table) Observe() *Cursor {
	c := &Cursor{table: t, pivot: -1}
	t.AddObserver(c)
	return c
}

// EntryRemoved retargets the pivot after a removal at index j.
func (c *Cursor) EntryRemoved(j int) {
	switch {
	case j < c.pivot:
		c.pivot--
	case j == c.pivot:
		// The entry now at pivot has not been returned yet.
		c.outOfRange = true
	}
}

// TableCleared rewinds the cursor.
func (c *Cursor) TableCleared() {
	c.pivot = -1
	c.outOfRange = false
}

// Next returns the next entry. Entries added during iteration are visited;
// removed ones are not.
func (c *Cursor) Next() (k, v value.Value, ok bool) {
	if c.closed {
		return value.Undefined, value.Undefined, false
	}
	next := c.pivot + 1
	if c.outOfRange {
		next = c.pivot
	}
	k, v, ok = c.table.Iterate(next)
	if !ok {
		return value.Undefined, value.Undefined, false
	}
	c.pivot = next
	c.outOfRange = false
	return k, v, true
}

// Pivot returns the index of the entry returned last.
func (c *Cursor) Pivot() int { return c.pivot }

// OutOfRange reports whether the entry at the pivot was removed after it
// was returned.
func (c *Cursor) OutOfRange() bool { return c.outOfRange }

// Close unregisters the cursor. Next returns nothing afterwards.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.table.RemoveObserver(c)
}
