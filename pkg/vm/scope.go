package vm

import (
	"fmt"

	"objmodel/pkg/errors"
	"objmodel/pkg/jsstring"
	"objmodel/pkg/object"
	"objmodel/pkg/prop"
	"objmodel/pkg/shape"
	"objmodel/pkg/value"
)

// Variable is a binding declared in a scope. Escapes is set when a nested
// function captures it; such bindings must outlive the frame.
type Variable struct {
	Name    string
	Escapes bool
}

// StorageKind says where a binding lives.
type StorageKind uint8

const (
	InRegister StorageKind = iota
	InContext
)

func (k StorageKind) String() string {
	if k == InContext {
		return "context"
	}
	return "register"
}

// Location is the storage assigned to one binding.
type Location struct {
	Kind  StorageKind
	Index int
}

// ScopeLayout assigns each binding of a scope either a register or a slot
// in the scope's context object. Context objects of one layout share a
// shape built from the escaping names in declaration order.
type ScopeLayout struct {
	locations map[string]Location
	names     []string
	registers int
	context   *shape.Shape // nil when nothing escapes
}

// Layout computes the storage of vars. Redeclared names keep their first
// location; escaping wins if any declaration escapes.
func (e *Engine) Layout(vars []Variable) *ScopeLayout {
	escapes := make(map[string]bool, len(vars))
	var order []string
	for _, v := range vars {
		if _, seen := escapes[v.Name]; !seen {
			order = append(order, v.Name)
		}
		escapes[v.Name] = escapes[v.Name] || v.Escapes
	}
	l := &ScopeLayout{locations: make(map[string]Location, len(order)), names: order}
	var ctx *shape.Shape
	for _, name := range order {
		if !escapes[name] {
			l.locations[name] = Location{Kind: InRegister, Index: l.registers}
			l.registers++
			continue
		}
		if ctx == nil {
			ctx = e.shapes.Initial(value.Null, shape.ClassContext)
		}
		var slot uint32
		ctx, slot = ctx.AddMember(jsstring.New(name), prop.Writable)
		l.locations[name] = Location{Kind: InContext, Index: int(slot)}
	}
	if ctx != nil {
		l.context = ctx.PreventExtensions()
	}
	return l
}

// Lookup returns the location of name.
func (l *ScopeLayout) Lookup(name string) (Location, bool) {
	loc, ok := l.locations[name]
	return loc, ok
}

// Names returns the bindings in declaration order.
func (l *ScopeLayout) Names() []string { return l.names }

// Registers returns the number of registers a frame needs.
func (l *ScopeLayout) Registers() int { return l.registers }

// ContextShape returns the shape of the context object, nil when no
// binding escapes.
func (l *ScopeLayout) ContextShape() *shape.Shape { return l.context }

// Frame is one activation of a scope.
type Frame struct {
	engine  *Engine
	layout  *ScopeLayout
	parent  *Frame
	regs    *Registers
	context *object.Object
	left    bool
}

// Enter activates layout as a child of parent (nil for a top-level scope).
// The frame's registers are roots until Leave.
func (e *Engine) Enter(layout *ScopeLayout, parent *Frame) (*Frame, error) {
	f := &Frame{engine: e, layout: layout, parent: parent, regs: newRegisters(layout)}
	if layout.context != nil {
		ctx := object.NewWithClass(e.realm, value.Null, shape.ClassContext)
		for _, name := range layout.names {
			if loc := layout.locations[name]; loc.Kind == InContext {
				if ok, err := ctx.DefineOwnProperty(object.Name(name), object.DataProperty(value.Undefined, prop.Writable)); !ok || err != nil {
					return nil, errors.NewInvariantError("vm.Enter", "context slot for %q", name).CausedBy(err)
				}
			}
		}
		ctx.PreventExtensions()
		if ctx.Shape() != layout.context {
			return nil, errors.NewInvariantError("vm.Enter", "context shape #%d does not match layout #%d", ctx.Shape().ID(), layout.context.ID())
		}
		if err := e.heap.Allocate(ctx); err != nil {
			return nil, err
		}
		f.context = ctx
	}
	e.frames = append(e.frames, f)
	if debugEngine {
		fmt.Printf("[engine] enter frame: %d registers, context=%v\n", layout.registers, layout.context != nil)
	}
	return f, nil
}

// Leave deactivates f. Its context object stays alive while something else
// references it.
func (f *Frame) Leave() {
	if f.left {
		return
	}
	f.left = true
	frames := f.engine.frames
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i] == f {
			f.engine.frames = append(frames[:i], frames[i+1:]...)
			break
		}
	}
}

// Context returns the frame's context object, nil when nothing escapes.
func (f *Frame) Context() *object.Object { return f.context }

// Registers returns the frame's register window.
func (f *Frame) Registers() *Registers { return f.regs }

func (f *Frame) resolve(name string) (*Frame, Location, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if loc, ok := cur.layout.Lookup(name); ok {
			return cur, loc, true
		}
	}
	return nil, Location{}, false
}

// Get reads name from f or an enclosing frame.
func (f *Frame) Get(name string) (value.Value, error) {
	owner, loc, ok := f.resolve(name)
	if !ok {
		return value.Undefined, errors.NewInvariantError("vm.Frame.Get", "%q is not declared", name)
	}
	if loc.Kind == InRegister {
		return owner.regs.at(loc.Index), nil
	}
	return owner.context.Get(object.Name(name), nil)
}

// Set writes name in f or an enclosing frame.
func (f *Frame) Set(name string, v value.Value) error {
	owner, loc, ok := f.resolve(name)
	if !ok {
		return errors.NewInvariantError("vm.Frame.Set", "%q is not declared", name)
	}
	if loc.Kind == InRegister {
		owner.regs.set(loc.Index, v)
		return nil
	}
	if ok, err := owner.context.Put(object.Name(name), v, nil); !ok || err != nil {
		return errors.NewInvariantError("vm.Frame.Set", "context write to %q rejected", name).CausedBy(err)
	}
	return nil
}

// markRoots marks f and every enclosing frame. An enclosing frame may have
// left while f still resolves names through it.
func (f *Frame) markRoots(m value.Marker) {
	for cur := f; cur != nil; cur = cur.parent {
		cur.regs.MarkRoots(m)
		if cur.context != nil {
			m.Mark(cur.context)
		}
	}
}
