// Package object implements heap objects on top of the shape table and the
// array storage engine. Named properties live in slots laid out by the
// object's shape; array-index properties live in a lazily allocated
// arraystore.Storage.
package object

import (
	"fmt"

	"objmodel/pkg/arraystore"
	"objmodel/pkg/config"
	"objmodel/pkg/errors"
	"objmodel/pkg/jsstring"
	"objmodel/pkg/prop"
	"objmodel/pkg/shape"
	"objmodel/pkg/value"
)

const debugObjects = false

// Invoker runs accessor functions. The host interpreter implements it; the
// object model never executes user code itself.
type Invoker interface {
	Invoke(fn, this value.Value, args ...value.Value) (value.Value, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(fn, this value.Value, args ...value.Value) (value.Value, error)

func (f InvokerFunc) Invoke(fn, this value.Value, args ...value.Value) (value.Value, error) {
	return f(fn, this, args...)
}

// Realm is the state shared by every object of one engine.
type Realm struct {
	Shapes           *shape.Table
	Arrays           config.ArrayConfig
	CompactThreshold uint32

	length *jsstring.String
}

// NewRealm returns a realm over shapes.
func NewRealm(shapes *shape.Table, arrays config.ArrayConfig, compactThreshold uint32) *Realm {
	return &Realm{
		Shapes:           shapes,
		Arrays:           arrays,
		CompactThreshold: compactThreshold,
		length:           shapes.Intern("length"),
	}
}

// Property is a complete property descriptor. Data properties use Value;
// accessors use Getter and Setter and carry prop.Accessor.
type Property struct {
	Value  value.Value
	Getter value.Value
	Setter value.Value
	Attrs  prop.Attributes
}

// DataProperty returns a data descriptor.
func DataProperty(v value.Value, attrs prop.Attributes) Property {
	return Property{Value: v, Attrs: attrs &^ prop.Accessor}
}

// AccessorProperty returns an accessor descriptor. Writable is ignored.
func AccessorProperty(get, set value.Value, attrs prop.Attributes) Property {
	return Property{Getter: get, Setter: set, Attrs: (attrs | prop.Accessor).Normalized()}
}

// accessorPair is how an accessor element is held in array storage.
type accessorPair struct {
	get, set value.Value
}

func (p *accessorPair) MarkObjects(m value.Marker) {
	value.MarkValue(m, p.get)
	value.MarkValue(m, p.set)
}

// Object is a heap object.
type Object struct {
	realm    *Realm
	shape    *shape.Shape
	slots    []value.Value
	elements *arraystore.Storage
}

// New returns an empty ordinary object with prototype proto (null or an
// object).
func New(r *Realm, proto value.Value) *Object {
	return NewWithClass(r, proto, shape.ClassObject)
}

// NewWithClass returns an empty object of the given class.
func NewWithClass(r *Realm, proto value.Value, class shape.Class) *Object {
	s := r.Shapes.Initial(proto, class)
	return &Object{realm: r, shape: s, slots: make([]value.Value, s.Size())}
}

// NewArray returns an empty array. Its length lives in slot 0 as a
// writable, non-enumerable, non-configurable data property.
func NewArray(r *Realm, proto value.Value) *Object {
	o := NewWithClass(r, proto, shape.ClassArray)
	o.shape, _ = o.shape.AddMember(r.length, prop.Writable)
	o.slots = append(o.slots, value.Int32(0))
	o.elements = arraystore.New(r.Arrays)
	return o
}

func (o *Object) Shape() *shape.Shape    { return o.shape }
func (o *Object) Class() shape.Class     { return o.shape.Class() }
func (o *Object) IsArray() bool          { return o.shape.Class() == shape.ClassArray }
func (o *Object) Prototype() value.Value { return o.shape.Prototype() }
func (o *Object) Extensible() bool       { return o.shape.Extensible() }
func (o *Object) Value() value.Value     { return value.FromManaged(o) }

// Elements returns the array storage, nil when no element was ever written.
func (o *Object) Elements() *arraystore.Storage { return o.elements }

// FromValue returns the object referenced by v, if any.
func FromValue(v value.Value) (*Object, bool) {
	o, ok := v.AsManaged().(*Object)
	return o, ok
}

func (o *Object) proto() *Object {
	p, _ := FromValue(o.shape.Prototype())
	return p
}

func (o *Object) isLength(k Key) bool {
	return !k.IsIndex() && o.IsArray() && k.name.Equals(o.realm.length)
}

// GetOwnProperty returns the own property k.
func (o *Object) GetOwnProperty(k Key) (Property, bool) {
	if k.IsIndex() {
		return o.ownElement(k.index)
	}
	slot, attrs, ok := o.shape.Find(k.name)
	if !ok {
		return Property{}, false
	}
	if attrs.IsAccessor() {
		return Property{Getter: o.slots[slot], Setter: o.slots[slot+1], Attrs: attrs}, true
	}
	return Property{Value: o.slots[slot], Attrs: attrs}, true
}

func (o *Object) ownElement(i uint32) (Property, bool) {
	if o.elements == nil {
		return Property{}, false
	}
	attrs, ok := o.elements.Attributes(i)
	if !ok {
		return Property{}, false
	}
	v := o.elements.Get(i)
	if attrs.IsAccessor() {
		p := v.AsManaged().(*accessorPair)
		return Property{Getter: p.get, Setter: p.set, Attrs: attrs}, true
	}
	return Property{Value: v, Attrs: attrs}, true
}

// HasOwnProperty reports whether k is an own property.
func (o *Object) HasOwnProperty(k Key) bool {
	if k.IsIndex() {
		return o.elements != nil && o.elements.Has(k.index)
	}
	_, _, ok := o.shape.Find(k.name)
	return ok
}

// HasProperty reports whether k is an own or inherited property.
func (o *Object) HasProperty(k Key) bool {
	for cur := o; cur != nil; cur = cur.proto() {
		if cur.HasOwnProperty(k) {
			return true
		}
	}
	return false
}

// Get returns the value of k, walking the prototype chain. Getters run
// through inv with o as the receiver.
func (o *Object) Get(k Key, inv Invoker) (value.Value, error) {
	for cur := o; cur != nil; cur = cur.proto() {
		p, ok := cur.GetOwnProperty(k)
		if !ok {
			continue
		}
		if !p.Attrs.IsAccessor() {
			return p.Value, nil
		}
		if p.Getter.IsUndefined() {
			return value.Undefined, nil
		}
		if inv == nil {
			return value.Undefined, errors.NewInvariantError("object.Get", "getter for %q needs an invoker", k.String())
		}
		return inv.Invoke(p.Getter, o.Value())
	}
	return value.Undefined, nil
}

// Put assigns v to k. It returns false when the assignment is rejected:
// a read-only data property on o or its prototypes, an accessor without a
// setter, or a new property on a non-extensible object.
func (o *Object) Put(k Key, v value.Value, inv Invoker) (bool, error) {
	for cur := o; cur != nil; cur = cur.proto() {
		p, ok := cur.GetOwnProperty(k)
		if !ok {
			continue
		}
		if p.Attrs.IsAccessor() {
			if p.Setter.IsUndefined() {
				return false, nil
			}
			if inv == nil {
				return false, errors.NewInvariantError("object.Put", "setter for %q needs an invoker", k.String())
			}
			_, err := inv.Invoke(p.Setter, o.Value(), v)
			return err == nil, err
		}
		if !p.Attrs.IsWritable() {
			return false, nil
		}
		if cur == o {
			return o.writeOwn(k, v)
		}
		break
	}
	return o.addOwn(k, DataProperty(v, prop.Data))
}

// writeOwn stores v into the existing writable data property k.
func (o *Object) writeOwn(k Key, v value.Value) (bool, error) {
	if k.IsIndex() {
		return o.elements.Put(k.index, v), nil
	}
	if o.isLength(k) {
		n, err := toArrayLength(v)
		if err != nil {
			return false, err
		}
		return o.setLength(n), nil
	}
	slot, _, _ := o.shape.Find(k.name)
	o.slots[slot] = v
	return true, nil
}

// addOwn creates the own property k, which must not exist.
func (o *Object) addOwn(k Key, p Property) (bool, error) {
	if !o.shape.Extensible() {
		return false, nil
	}
	if k.IsIndex() {
		return o.addElement(k.index, p), nil
	}
	next, slot := o.shape.AddMember(k.name, p.Attrs)
	o.shape = next
	for uint32(len(o.slots)) < next.Size() {
		o.slots = append(o.slots, value.Undefined)
	}
	o.writeSlots(slot, p)
	if debugObjects {
		fmt.Printf("[object] add %q at slot %d -> shape #%d\n", k.String(), slot, next.ID())
	}
	return true, nil
}

func (o *Object) writeSlots(slot uint32, p Property) {
	if p.Attrs.IsAccessor() {
		o.slots[slot] = p.Getter
		o.slots[slot+1] = p.Setter
		return
	}
	o.slots[slot] = p.Value
}

// Delete removes the own property k. Non-configurable properties are not
// removed and yield false; absent ones yield true.
func (o *Object) Delete(k Key) bool {
	if k.IsIndex() {
		return o.elements == nil || o.elements.Delete(k.index)
	}
	slot, attrs, ok := o.shape.Find(k.name)
	if !ok {
		return true
	}
	if !attrs.IsConfigurable() {
		return false
	}
	for i := uint32(0); i < attrs.SlotCount(); i++ {
		o.slots[slot+i] = value.Undefined
	}
	o.shape = o.shape.RemoveMember(k.name)
	if t := o.realm.CompactThreshold; t > 0 && o.shape.Orphans() >= t {
		o.compact()
	}
	return true
}

// compact drops orphaned slots by moving to a freshly built shape.
func (o *Object) compact() {
	next, m := o.shape.Compacted()
	if debugObjects {
		fmt.Printf("[object] compact shape #%d (%d slots) -> #%d (%d slots)\n",
			o.shape.ID(), o.shape.Size(), next.ID(), next.Size())
	}
	o.migrate(next, m)
}

// migrate moves slot values to next using a SlotMap-style map.
func (o *Object) migrate(next *shape.Shape, m []int) {
	slots := make([]value.Value, next.Size())
	for i, j := range m {
		if j >= 0 {
			slots[i] = o.slots[j]
		}
	}
	o.shape, o.slots = next, slots
}

// DefineOwnProperty creates or replaces the own property k with the
// complete descriptor p. It returns false when k is non-configurable and p
// is not compatible with it, or when k is new and o is not extensible.
func (o *Object) DefineOwnProperty(k Key, p Property) (bool, error) {
	p.Attrs = p.Attrs.Normalized()
	if o.isLength(k) {
		return o.defineLength(p)
	}
	cur, exists := o.GetOwnProperty(k)
	if !exists {
		return o.addOwn(k, p)
	}
	if !compatible(cur, p) {
		return false, nil
	}
	if k.IsIndex() {
		return o.defineElement(k.index, p), nil
	}
	if cur.Attrs != p.Attrs {
		next, remapped := o.shape.ChangeMember(k.name, p.Attrs)
		if remapped {
			o.migrate(next, next.SlotMap(o.shape))
		} else {
			o.shape = next
		}
	}
	slot, _, _ := o.shape.Find(k.name)
	o.writeSlots(slot, p)
	return true, nil
}

// compatible reports whether p may replace cur.
func compatible(cur, p Property) bool {
	if cur.Attrs.IsConfigurable() {
		return true
	}
	if p.Attrs.IsConfigurable() || p.Attrs.IsEnumerable() != cur.Attrs.IsEnumerable() {
		return false
	}
	if cur.Attrs.IsAccessor() != p.Attrs.IsAccessor() {
		return false
	}
	if cur.Attrs.IsAccessor() {
		return value.SameValue(cur.Getter, p.Getter) && value.SameValue(cur.Setter, p.Setter)
	}
	if !cur.Attrs.IsWritable() {
		return !p.Attrs.IsWritable() && value.SameValue(cur.Value, p.Value)
	}
	return true
}

// OwnKeys returns element indices in ascending order followed by names in
// insertion order.
func (o *Object) OwnKeys() []Key {
	var keys []Key
	if o.elements != nil {
		o.elements.ForEach(func(i uint32, _ value.Value, _ prop.Attributes) bool {
			keys = append(keys, Key{index: i})
			return true
		})
	}
	for _, name := range o.shape.Keys() {
		keys = append(keys, Key{name: name})
	}
	return keys
}

// EnumerableKeys is OwnKeys restricted to enumerable properties.
func (o *Object) EnumerableKeys() []Key {
	var keys []Key
	if o.elements != nil {
		o.elements.ForEach(func(i uint32, _ value.Value, attrs prop.Attributes) bool {
			if attrs.IsEnumerable() {
				keys = append(keys, Key{index: i})
			}
			return true
		})
	}
	for _, m := range o.shape.Members() {
		if m.Attrs.IsEnumerable() {
			keys = append(keys, Key{name: m.Name})
		}
	}
	return keys
}

// SetPrototype changes the prototype to proto (null or an object). It
// fails on non-extensible objects and when proto would create a cycle.
func (o *Object) SetPrototype(proto value.Value) bool {
	if value.SameValue(proto, o.shape.Prototype()) {
		return true
	}
	if !o.shape.Extensible() {
		return false
	}
	p, ok := FromValue(proto)
	if !ok && !proto.IsNull() {
		return false
	}
	for ; p != nil; p = p.proto() {
		if p == o {
			return false
		}
	}
	o.shape = o.shape.ChangePrototype(proto)
	return true
}

// MarkObjects marks the shape, slot values and elements.
func (o *Object) MarkObjects(m value.Marker) {
	m.Mark(o.shape)
	value.MarkValues(m, o.slots)
	if o.elements != nil {
		o.elements.MarkObjects(m)
	}
}

func (o *Object) TypeOf() string { return "object" }

func (o *Object) String() string {
	if o.IsArray() {
		return fmt.Sprintf("[object Array(%d)]", o.Length())
	}
	return "[object Object]"
}
