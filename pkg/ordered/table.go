// Package ordered provides the insertion-ordered key/value table behind the
// collection types. Removal compacts the entry arrays and tells every
// registered observer, so cursors survive mutation without skipping or
// repeating entries.
package ordered

import (
	"fmt"

	"objmodel/pkg/value"
)

const debugOrdered = false

const initialCapacity = 8

// ShiftObserver is notified after the table compacts.
type ShiftObserver interface {
	// EntryRemoved reports that the entry at index was removed and every
	// later entry moved down by one.
	EntryRemoved(index int)
	// TableCleared reports that every entry was removed.
	TableCleared()
}

// Table is an insertion-ordered map with same-value-zero keys.
type Table struct {
	keys      []value.Value
	values    []value.Value
	size      int
	observers []ShiftObserver
}

// New returns an empty table.
func New() *Table { return &Table{} }

// normalize folds -0 into +0 so keys are stored canonically.
func normalize(k value.Value) value.Value {
	if k.IsDouble() && k.Double() == 0 {
		return value.Int32(0)
	}
	return k
}

func (t *Table) indexOf(k value.Value) int {
	for i := 0; i < t.size; i++ {
		if value.SameValueZero(t.keys[i], k) {
			return i
		}
	}
	return -1
}

func (t *Table) grow() {
	n := max(initialCapacity, 2*len(t.keys))
	keys := make([]value.Value, n)
	values := make([]value.Value, n)
	copy(keys, t.keys[:t.size])
	copy(values, t.values[:t.size])
	t.keys, t.values = keys, values
}

// Set stores v under k, keeping the position of an existing key.
func (t *Table) Set(k, v value.Value) {
	k = normalize(k)
	if i := t.indexOf(k); i >= 0 {
		t.values[i] = v
		return
	}
	if t.size == len(t.keys) {
		t.grow()
	}
	t.keys[t.size] = k
	t.values[t.size] = v
	t.size++
}

// Get returns the value stored under k.
func (t *Table) Get(k value.Value) (value.Value, bool) {
	if i := t.indexOf(normalize(k)); i >= 0 {
		return t.values[i], true
	}
	return value.Undefined, false
}

// Has reports whether k is present.
func (t *Table) Has(k value.Value) bool { return t.indexOf(normalize(k)) >= 0 }

// Remove deletes k, shifting later entries down, and notifies observers.
func (t *Table) Remove(k value.Value) bool {
	i := t.indexOf(normalize(k))
	if i < 0 {
		return false
	}
	copy(t.keys[i:], t.keys[i+1:t.size])
	copy(t.values[i:], t.values[i+1:t.size])
	t.size--
	t.keys[t.size] = value.Undefined
	t.values[t.size] = value.Undefined
	if debugOrdered {
		fmt.Printf("[ordered] remove at %d, %d observers\n", i, len(t.observers))
	}
	for _, o := range t.observers {
		o.EntryRemoved(i)
	}
	return true
}

// Clear removes every entry and notifies observers.
func (t *Table) Clear() {
	clear(t.keys[:t.size])
	clear(t.values[:t.size])
	t.size = 0
	for _, o := range t.observers {
		o.TableCleared()
	}
}

// Size returns the number of entries.
func (t *Table) Size() int { return t.size }

// Iterate returns the entry at position i in insertion order.
func (t *Table) Iterate(i int) (k, v value.Value, ok bool) {
	if i < 0 || i >= t.size {
		return value.Undefined, value.Undefined, false
	}
	return t.keys[i], t.values[i], true
}

// Keys returns a copy of the keys in insertion order.
func (t *Table) Keys() []value.Value {
	return append([]value.Value(nil), t.keys[:t.size]...)
}

// Values returns a copy of the values in insertion order.
func (t *Table) Values() []value.Value {
	return append([]value.Value(nil), t.values[:t.size]...)
}

// ForEach calls fn for each entry in insertion order. fn must not mutate
// the table; use a Cursor for that.
func (t *Table) ForEach(fn func(k, v value.Value)) {
	for i := 0; i < t.size; i++ {
		fn(t.keys[i], t.values[i])
	}
}

// AddObserver registers o for shift notifications.
func (t *Table) AddObserver(o ShiftObserver) {
	t.observers = append(t.observers, o)
}

// RemoveObserver unregisters o.
func (t *Table) RemoveObserver(o ShiftObserver) {
	for i, x := range t.observers {
		if x == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Observers returns the number of registered observers.
func (t *Table) Observers() int { return len(t.observers) }

// MarkObjects marks every key and value.
func (t *Table) MarkObjects(m value.Marker) {
	value.MarkValues(m, t.keys[:t.size])
	value.MarkValues(m, t.values[:t.size])
}

// TypeOf reports the table as an object to Value coercions.
func (t *Table) TypeOf() string { return "object" }
