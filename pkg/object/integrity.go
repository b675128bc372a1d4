package object

import (
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

// PreventExtensions stops new properties from being added.
func (o *Object) PreventExtensions() {
	o.shape = o.shape.PreventExtensions()
}

// Seal prevents extensions and makes every own property non-configurable.
func (o *Object) Seal() {
	o.shape = o.shape.Sealed()
	if o.elements != nil {
		o.elements.Seal()
	}
}

// Freeze seals o and makes every own data property read-only.
func (o *Object) Freeze() {
	o.shape = o.shape.Frozen()
	if o.elements != nil {
		o.elements.Freeze()
	}
}

// IsSealed reports whether o is non-extensible with no configurable own
// property.
func (o *Object) IsSealed() bool {
	return o.shape.IsSealed() && o.allElements(func(a prop.Attributes) bool { return !a.IsConfigurable() })
}

// IsFrozen reports whether o is sealed with no writable own data property.
func (o *Object) IsFrozen() bool {
	return o.shape.IsFrozen() && o.allElements(func(a prop.Attributes) bool {
		return !a.IsConfigurable() && !a.IsWritable()
	})
}

func (o *Object) allElements(ok func(prop.Attributes) bool) bool {
	if o.elements == nil || o.elements.Count() == 0 {
		return true
	}
	if !o.elements.HasSpecial() {
		return ok(prop.Data)
	}
	all := true
	o.elements.ForEach(func(_ uint32, _ value.Value, a prop.Attributes) bool {
		all = ok(a)
		return all
	})
	return all
}
