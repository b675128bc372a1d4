// Package vm is the embedding surface of the object model. An Engine owns
// the heap, the string interner and the shape table, and is the single
// place where cells are allocated so that the collector sees all of them.
package vm

import (
	"fmt"

	"objmodel/pkg/config"
	"objmodel/pkg/gc"
	"objmodel/pkg/jsstring"
	"objmodel/pkg/object"
	"objmodel/pkg/ordered"
	"objmodel/pkg/shape"
	"objmodel/pkg/value"
)

const debugEngine = false

// Engine is one isolated runtime. It is not safe for concurrent use except
// for RequestCollect.
type Engine struct {
	cfg     *config.Tunables
	heap    *gc.Heap
	strings *jsstring.Interner
	shapes  *shape.Table
	realm   *object.Realm
	limits  jsstring.Limits

	objectProto *object.Object
	arrayProto  *object.Object
	frames      []*Frame
}

// Stats combines heap and table statistics.
type Stats struct {
	gc.Stats
	Shapes   int
	Interned int
	Frames   int
}

func (s Stats) String() string {
	return fmt.Sprintf("%s shapes=%d interned=%d frames=%d", s.Stats.String(), s.Shapes, s.Interned, s.Frames)
}

// New returns an engine configured by cfg; nil means config.Default().
func New(cfg *config.Tunables) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		heap:    gc.NewHeap(cfg.Heap),
		strings: jsstring.NewInterner(),
		limits: jsstring.Limits{
			FlattenMinLength: cfg.Strings.FlattenMinLength,
			FlattenRatio:     cfg.Strings.FlattenRatio,
			MaxDepth:         cfg.Strings.MaxDepth,
			MaxLength:        cfg.Strings.MaxLength,
		},
	}
	e.shapes = shape.NewTable(e.strings)
	e.realm = object.NewRealm(e.shapes, cfg.Array, cfg.Objects.CompactThreshold)
	e.heap.AddRoots(gc.RootFunc(e.markRoots))
	e.heap.OnSweep(func(alive func(value.Managed) bool) {
		n := e.strings.Sweep(func(s *jsstring.String) bool { return alive(s) })
		if debugEngine && n > 0 {
			fmt.Printf("[engine] dropped %d interned strings\n", n)
		}
	})

	var err error
	if e.objectProto, err = e.allocObject(object.New(e.realm, value.Null)); err != nil {
		return nil, err
	}
	if e.arrayProto, err = e.allocObject(object.New(e.realm, e.objectProto.Value())); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) markRoots(m value.Marker) {
	e.shapes.MarkObjects(m)
	m.Mark(e.objectProto)
	m.Mark(e.arrayProto)
	for _, f := range e.frames {
		f.markRoots(m)
	}
}

func (e *Engine) Config() *config.Tunables    { return e.cfg }
func (e *Engine) Heap() *gc.Heap              { return e.heap }
func (e *Engine) Shapes() *shape.Table        { return e.shapes }
func (e *Engine) Strings() *jsstring.Interner { return e.strings }
func (e *Engine) Realm() *object.Realm        { return e.realm }

// ObjectPrototype is the default prototype of NewObject results.
func (e *Engine) ObjectPrototype() *object.Object { return e.objectProto }

// ArrayPrototype is the prototype of NewArray results.
func (e *Engine) ArrayPrototype() *object.Object { return e.arrayProto }

func (e *Engine) allocObject(o *object.Object) (*object.Object, error) {
	if err := e.heap.Allocate(o); err != nil {
		return nil, err
	}
	return o, nil
}

// NewObject allocates an ordinary object inheriting from ObjectPrototype.
func (e *Engine) NewObject() (*object.Object, error) {
	return e.allocObject(object.New(e.realm, e.objectProto.Value()))
}

// NewObjectWithProto allocates an ordinary object with prototype proto.
func (e *Engine) NewObjectWithProto(proto value.Value) (*object.Object, error) {
	return e.allocObject(object.New(e.realm, proto))
}

// NewArray allocates an empty array.
func (e *Engine) NewArray() (*object.Object, error) {
	return e.allocObject(object.NewArray(e.realm, e.arrayProto.Value()))
}

// NewString allocates a flat string.
func (e *Engine) NewString(s string) (*jsstring.String, error) {
	str := jsstring.New(s)
	if err := e.heap.Allocate(str); err != nil {
		return nil, err
	}
	return str, nil
}

// Concat joins a and b under the engine's string limits.
func (e *Engine) Concat(a, b *jsstring.String) (*jsstring.String, error) {
	s, err := e.limits.Concat(a, b)
	if err != nil {
		return nil, err
	}
	if err := e.heap.Allocate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Internalize returns the canonical instance of s.
func (e *Engine) Internalize(s *jsstring.String) (*jsstring.String, error) {
	c := e.strings.Intern(s)
	if err := e.heap.Allocate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// NewOrderedTable allocates an empty ordered table.
func (e *Engine) NewOrderedTable() (*ordered.Table, error) {
	t := ordered.New()
	if err := e.heap.Allocate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Persistent returns a handle that keeps v alive until released.
func (e *Engine) Persistent(v value.Value) *gc.Handle { return e.heap.NewPersistent(v) }

// Weak returns a handle to v that is cleared when v dies.
func (e *Engine) Weak(v value.Value) *gc.Handle { return e.heap.NewWeak(v) }

// Collect runs a full collection and returns the number of cells freed.
func (e *Engine) Collect() int { return e.heap.Collect() }

// RequestCollect schedules a collection for the next safe point. It may be
// called from any goroutine.
func (e *Engine) RequestCollect() { e.heap.RequestCollect() }

// SafePoint runs a scheduled collection. Hosts call it between complete
// operations.
func (e *Engine) SafePoint() bool { return e.heap.SafePoint() }

// Stats reports heap and table sizes.
func (e *Engine) Stats() Stats {
	return Stats{
		Stats:    e.heap.Stats(),
		Shapes:   e.shapes.Len(),
		Interned: e.strings.Len(),
		Frames:   len(e.frames),
	}
}
