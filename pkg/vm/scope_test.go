package vm

import (
	"testing"

	"objmodel/pkg/object"
	"objmodel/pkg/value"
)

func TestLayoutSplitsEscaping(t *testing.T) {
	e := newEngine(t, nil)
	l := e.Layout([]Variable{
		{Name: "i"},
		{Name: "total", Escapes: true},
		{Name: "tmp"},
		{Name: "cb", Escapes: true},
		{Name: "i", Escapes: true},
	})
	want := map[string]Location{
		"i":     {InContext, 0},
		"total": {InContext, 1},
		"tmp":   {InRegister, 0},
		"cb":    {InContext, 2},
	}
	for name, w := range want {
		if got, ok := l.Lookup(name); !ok || got != w {
			t.Errorf("%s: got %+v, want %+v", name, got, w)
		}
	}
	if l.Registers() != 1 || l.ContextShape().Len() != 3 || l.ContextShape().Extensible() {
		t.Errorf("registers=%d context=%v", l.Registers(), l.ContextShape())
	}
	again := e.Layout([]Variable{{Name: "i", Escapes: true}, {Name: "total", Escapes: true}, {Name: "cb", Escapes: true}})
	if again.ContextShape() != l.ContextShape() {
		t.Errorf("layouts with the same escaping names should share a context shape")
	}
}

func TestLayoutWithoutEscapes(t *testing.T) {
	e := newEngine(t, nil)
	l := e.Layout([]Variable{{Name: "a"}, {Name: "b"}})
	if l.ContextShape() != nil {
		t.Errorf("no binding escapes, so no context is needed")
	}
	f, err := e.Enter(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Leave()
	if f.Context() != nil {
		t.Errorf("frame allocated a context")
	}
}

func TestFrameReadsAndWrites(t *testing.T) {
	e := newEngine(t, nil)
	outer := e.Layout([]Variable{{Name: "x", Escapes: true}, {Name: "n"}})
	inner := e.Layout([]Variable{{Name: "y"}})
	of, err := e.Enter(outer, nil)
	if err != nil {
		t.Fatal(err)
	}
	inf, err := e.Enter(inner, of)
	if err != nil {
		t.Fatal(err)
	}
	if err := inf.Set("x", value.Int32(5)); err != nil {
		t.Fatal(err)
	}
	if err := inf.Set("y", value.Int32(6)); err != nil {
		t.Fatal(err)
	}
	of.Set("n", value.Int32(7))
	for name, want := range map[string]int32{"x": 5, "y": 6, "n": 7} {
		v, err := inf.Get(name)
		if err != nil || v.Int32() != want {
			t.Errorf("%s = %v, %v", name, v, err)
		}
	}
	if _, err := of.Get("y"); err == nil {
		t.Errorf("outer frame sees an inner binding")
	}
	if v, _ := of.Context().Get(object.Name("x"), nil); v.Int32() != 5 {
		t.Errorf("escaping binding not stored in the context: %v", v)
	}
	inf.Leave()
	of.Leave()
	if e.Stats().Frames != 0 {
		t.Errorf("frames left active")
	}
}

func TestContextOutlivesFrame(t *testing.T) {
	e := newEngine(t, nil)
	l := e.Layout([]Variable{{Name: "captured", Escapes: true}, {Name: "local"}})
	f, err := e.Enter(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := e.NewString("kept")
	tmp, _ := e.NewString("dropped")
	f.Set("captured", s.Value())
	f.Set("local", tmp.Value())
	e.Collect()
	if !e.Heap().Contains(s) || !e.Heap().Contains(tmp) {
		t.Fatalf("active frame did not root its bindings")
	}
	closure := e.Persistent(f.Context().Value())
	f.Leave()
	e.Collect()
	if !e.Heap().Contains(s) {
		t.Errorf("captured binding died with its frame")
	}
	if e.Heap().Contains(tmp) {
		t.Errorf("register binding outlived its frame")
	}
	closure.Release()
	e.Collect()
	if e.Heap().Contains(s) {
		t.Errorf("captured binding survived its last reference")
	}
}

func TestParentRegistersStayRootedForChild(t *testing.T) {
	e := newEngine(t, nil)
	outer := e.Layout([]Variable{{Name: "n"}})
	inner := e.Layout([]Variable{{Name: "m"}})
	of, err := e.Enter(outer, nil)
	if err != nil {
		t.Fatal(err)
	}
	inf, err := e.Enter(inner, of)
	if err != nil {
		t.Fatal(err)
	}
	defer inf.Leave()
	s, _ := e.NewString("outer value")
	of.Set("n", s.Value())
	of.Leave()
	e.Collect()
	if !e.Heap().Contains(s) {
		t.Fatalf("register of a left parent died while a child still resolves it")
	}
	if v, err := inf.Get("n"); err != nil || v.AsManaged() != s {
		t.Errorf("child read of n = %v, %v", v, err)
	}
}

func TestRegistersFollowLayout(t *testing.T) {
	e := newEngine(t, nil)
	l := e.Layout([]Variable{{Name: "a"}, {Name: "shared", Escapes: true}, {Name: "b"}})
	f, err := e.Enter(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Leave()
	r := f.Registers()
	if r.Len() != l.Registers() || r.Len() != 2 {
		t.Fatalf("register window = %d, layout wants %d", r.Len(), l.Registers())
	}
	if err := r.Store("b", value.Int32(42)); err != nil {
		t.Fatal(err)
	}
	if v, err := f.Get("b"); err != nil || v.Int32() != 42 {
		t.Errorf("frame read of b = %v, %v", v, err)
	}
	if v, err := r.Load("a"); err != nil || !v.IsUndefined() {
		t.Errorf("fresh register a = %v, %v", v, err)
	}
	for _, name := range []string{"shared", "missing"} {
		if err := r.Store(name, value.Null); err == nil {
			t.Errorf("Store(%q) succeeded on a non-register binding", name)
		}
	}
	b := r.Bindings()
	if len(b) != 2 || b["b"].Int32() != 42 || !b["a"].IsUndefined() {
		t.Errorf("bindings = %v", b)
	}
}
