package object

import (
	"objmodel/pkg/arraystore"
	"objmodel/pkg/errors"
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

// Length returns the script-visible length of an array, 0 for other
// objects.
func (o *Object) Length() uint32 {
	if !o.IsArray() {
		return 0
	}
	return uint32(o.slots[0].AsNumber())
}

func (o *Object) lengthWritable() bool {
	_, attrs, _ := o.shape.Find(o.realm.length)
	return attrs.IsWritable()
}

func (o *Object) ensureElements() *arraystore.Storage {
	if o.elements == nil {
		o.elements = arraystore.New(o.realm.Arrays)
	}
	return o.elements
}

// addElement creates element i. Arrays grow their length to cover it.
func (o *Object) addElement(i uint32, p Property) bool {
	if o.IsArray() && i >= o.Length() && !o.lengthWritable() {
		return false
	}
	if !o.ensureElements().Define(i, elementValue(p), p.Attrs) {
		return false
	}
	if o.IsArray() && i >= o.Length() {
		o.slots[0] = value.Number(float64(i) + 1)
	}
	return true
}

func (o *Object) defineElement(i uint32, p Property) bool {
	return o.elements.Define(i, elementValue(p), p.Attrs)
}

func elementValue(p Property) value.Value {
	if p.Attrs.IsAccessor() {
		return value.FromManaged(&accessorPair{get: p.Getter, set: p.Setter})
	}
	return p.Value
}

// setLength moves the array length to n. Shrinking deletes elements from
// the top and stops above the first non-configurable one, in which case
// the length ends there and false is returned.
func (o *Object) setLength(n uint32) bool {
	cur := o.Length()
	if n == cur {
		return true
	}
	if !o.lengthWritable() {
		return false
	}
	if n < cur && o.elements != nil {
		if got := o.elements.Truncate(n); got > n {
			o.slots[0] = value.Number(float64(got))
			return false
		}
	}
	o.slots[0] = value.Number(float64(n))
	return true
}

func (o *Object) defineLength(p Property) (bool, error) {
	if p.Attrs.IsAccessor() || p.Attrs.IsConfigurable() || p.Attrs.IsEnumerable() {
		return false, nil
	}
	n, err := toArrayLength(p.Value)
	if err != nil {
		return false, err
	}
	writable := o.lengthWritable()
	if !writable && p.Attrs.IsWritable() {
		return false, nil
	}
	if !o.setLength(n) {
		return false, nil
	}
	if writable && !p.Attrs.IsWritable() {
		o.shape, _ = o.shape.ChangeMember(o.realm.length, prop.None)
	}
	return true, nil
}

// toArrayLength validates v as an array length.
func toArrayLength(v value.Value) (uint32, error) {
	n := v.ToNumber()
	u := v.ToUint32()
	if float64(u) != n {
		return 0, errors.NewRangeError("object.SetLength", "invalid array length %s", v.String())
	}
	return u, nil
}

// Push appends v at the array length.
func (o *Object) Push(v value.Value) (bool, error) {
	n := o.Length()
	if uint64(n) >= value.MaxArrayIndex+1 {
		return false, errors.NewRangeError("object.Push", "array length exceeds %d", uint64(value.MaxArrayIndex+1))
	}
	return o.Put(Index(n), v, nil)
}

// Pop removes and returns the last element of an array. Empty arrays
// return undefined.
func (o *Object) Pop() (value.Value, bool) {
	n := o.Length()
	if n == 0 {
		return value.Undefined, o.lengthWritable()
	}
	last := n - 1
	v := value.Undefined
	if p, ok := o.ownElement(last); ok && p.Attrs.IsData() {
		v = p.Value
	}
	if !o.Delete(Index(last)) {
		return value.Undefined, false
	}
	return v, o.setLength(last)
}

// Shift removes and returns element 0, moving the rest down by one. It
// returns an invariant error when elements carry non-default attributes.
func (o *Object) Shift() (value.Value, error) {
	n := o.Length()
	if n == 0 {
		return value.Undefined, nil
	}
	if !o.lengthWritable() {
		return value.Undefined, errors.NewInvariantError("object.Shift", "array length is read-only")
	}
	v := value.Empty
	if o.elements != nil {
		var err error
		if v, err = o.elements.PopFront(); err != nil {
			return value.Undefined, err
		}
	}
	o.slots[0] = value.Number(float64(n - 1))
	if v.IsEmpty() {
		v = value.Undefined
	}
	return v, nil
}

// Unshift inserts v at element 0, moving the rest up by one. Every unshift
// creates an index, so non-extensible arrays refuse it.
func (o *Object) Unshift(v value.Value) error {
	n := o.Length()
	if !o.lengthWritable() {
		return errors.NewInvariantError("object.Unshift", "array length is read-only")
	}
	if !o.shape.Extensible() {
		return errors.NewInvariantError("object.Unshift", "array is not extensible")
	}
	if uint64(n) >= value.MaxArrayIndex+1 {
		return errors.NewRangeError("object.Unshift", "array length exceeds %d", uint64(value.MaxArrayIndex+1))
	}
	if err := o.ensureElements().PushFront(v); err != nil {
		return err
	}
	o.slots[0] = value.Number(float64(n) + 1)
	return nil
}

// Sort sorts the elements below the array length with cmp.
func (o *Object) Sort(cmp arraystore.Comparator) error {
	if o.elements == nil {
		return nil
	}
	return o.elements.Sort(cmp, o.Length())
}
