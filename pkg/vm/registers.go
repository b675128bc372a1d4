package vm

import (
	"objmodel/pkg/errors"
	"objmodel/pkg/value"
)

// Registers is the register window of one frame: exactly one value per
// non-escaping binding of its layout, in declaration order. The window is
// sized once from the layout and never grows.
type Registers struct {
	layout *ScopeLayout
	values []value.Value
}

func newRegisters(l *ScopeLayout) *Registers {
	return &Registers{layout: l, values: make([]value.Value, l.registers)}
}

// Len returns the number of registers, ScopeLayout.Registers of the layout.
func (r *Registers) Len() int { return len(r.values) }

func (r *Registers) index(op, name string) (int, error) {
	loc, ok := r.layout.Lookup(name)
	if !ok || loc.Kind != InRegister {
		return 0, errors.NewInvariantError(op, "%q is not a register binding", name)
	}
	return loc.Index, nil
}

// Load reads the register holding name.
func (r *Registers) Load(name string) (value.Value, error) {
	i, err := r.index("vm.Registers.Load", name)
	if err != nil {
		return value.Undefined, err
	}
	return r.values[i], nil
}

// Store writes the register holding name.
func (r *Registers) Store(name string, v value.Value) error {
	i, err := r.index("vm.Registers.Store", name)
	if err != nil {
		return err
	}
	r.values[i] = v
	return nil
}

func (r *Registers) at(i int) value.Value { return r.values[i] }

func (r *Registers) set(i int, v value.Value) { r.values[i] = v }

// Bindings returns the register bindings by name.
func (r *Registers) Bindings() map[string]value.Value {
	out := make(map[string]value.Value, len(r.values))
	for _, name := range r.layout.names {
		if loc := r.layout.locations[name]; loc.Kind == InRegister {
			out[name] = r.values[loc.Index]
		}
	}
	return out
}

// MarkRoots marks every register.
func (r *Registers) MarkRoots(m value.Marker) {
	value.MarkValues(m, r.values)
}
