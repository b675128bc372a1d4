package gc

import (
	stderrors "errors"
	"sync"
	"testing"

	"objmodel/pkg/config"
	"objmodel/pkg/errors"
	"objmodel/pkg/value"
)

type cell struct {
	name     string
	children []value.Value
}

func (c *cell) MarkObjects(m value.Marker) { value.MarkValues(m, c.children) }

func newCell(hp *Heap, t *testing.T, name string, children ...*cell) *cell {
	t.Helper()
	c := &cell{name: name}
	for _, ch := range children {
		c.children = append(c.children, value.FromManaged(ch))
	}
	if err := hp.Allocate(c); err != nil {
		t.Fatalf("Allocate(%s): %v", name, err)
	}
	return c
}

func testHeap() *Heap {
	return NewHeap(config.HeapConfig{MarkStackLimit: 64})
}

func TestCollectKeepsReachable(t *testing.T) {
	hp := testHeap()
	leaf := newCell(hp, t, "leaf")
	mid := newCell(hp, t, "mid", leaf)
	root := newCell(hp, t, "root", mid)
	garbage := newCell(hp, t, "garbage", leaf)
	hp.AddRoots(RootFunc(func(m value.Marker) { m.Mark(root) }))

	if freed := hp.Collect(); freed != 1 {
		t.Errorf("expected 1 freed cell, got %d", freed)
	}
	for _, c := range []*cell{leaf, mid, root} {
		if !hp.Contains(c) {
			t.Errorf("%s was collected", c.name)
		}
	}
	if hp.Contains(garbage) {
		t.Errorf("garbage survived")
	}
	if s := hp.Stats(); s.Collections != 1 || s.Live != 3 || s.TotalFreed != 1 {
		t.Errorf("stats = %v", s)
	}
}

func TestCycleIsCollected(t *testing.T) {
	hp := testHeap()
	a := newCell(hp, t, "a")
	b := newCell(hp, t, "b", a)
	a.children = append(a.children, value.FromManaged(b))
	if freed := hp.Collect(); freed != 2 {
		t.Errorf("expected the unreachable cycle to be freed, got %d", freed)
	}
}

func TestMarkStackDrainsInline(t *testing.T) {
	ms := NewMarkStack(8)
	var cells []*cell
	for i := 0; i < 100; i++ {
		cells = append(cells, &cell{})
	}
	for _, c := range cells {
		ms.Mark(c)
		if ms.Len() > 8 {
			t.Fatalf("stack grew to %d past its limit", ms.Len())
		}
	}
	if ms.InlineDrains() == 0 {
		t.Errorf("expected inline drains")
	}
	ms.Drain()
	if ms.Marked() != 100 || ms.Len() != 0 {
		t.Errorf("marked=%d pending=%d", ms.Marked(), ms.Len())
	}
}

func TestMarkStackDeepChain(t *testing.T) {
	hp := NewHeap(config.HeapConfig{MarkStackLimit: 4})
	var head *cell
	for i := 0; i < 1000; i++ {
		if head == nil {
			head = newCell(hp, t, "n")
		} else {
			head = newCell(hp, t, "n", head)
		}
	}
	hp.AddRoots(RootFunc(func(m value.Marker) { m.Mark(head) }))
	if freed := hp.Collect(); freed != 0 {
		t.Errorf("chain lost %d cells", freed)
	}
}

func TestAllocationLimit(t *testing.T) {
	hp := NewHeap(config.HeapConfig{MaxCells: 2, MarkStackLimit: 16})
	a := newCell(hp, t, "a")
	newCell(hp, t, "b")
	hp.AddRoots(RootFunc(func(m value.Marker) { m.Mark(a) }))

	// The limit forces a collection that frees b.
	c := newCell(hp, t, "c")
	if hp.Stats().Collections != 1 {
		t.Fatalf("expected a collection at the limit")
	}
	hp.AddRoots(RootFunc(func(m value.Marker) { m.Mark(c) }))

	err := hp.Allocate(&cell{name: "d"})
	var allocErr *errors.AllocationError
	if !stderrors.As(err, &allocErr) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if allocErr.Op() != "gc.Allocate" {
		t.Errorf("op = %q", allocErr.Op())
	}
	if hp.Live() != 2 {
		t.Errorf("live = %d", hp.Live())
	}
}

func TestPersistentHandleKeepsTarget(t *testing.T) {
	hp := testHeap()
	c := newCell(hp, t, "held")
	h := hp.NewPersistent(value.FromManaged(c))
	hp.Collect()
	if !hp.Contains(c) || h.Get().AsManaged() != c {
		t.Fatalf("persistent handle did not keep its target")
	}
	h.Release()
	if !h.Get().IsUndefined() {
		t.Errorf("released handle still returns its target")
	}
	hp.Collect()
	if hp.Contains(c) {
		t.Errorf("target survived its released handle")
	}
	if s := hp.Stats(); s.Persistent != 0 {
		t.Errorf("released handle still linked: %v", s)
	}
}

func TestWeakHandleCleared(t *testing.T) {
	hp := testHeap()
	live := newCell(hp, t, "live")
	dead := newCell(hp, t, "dead")
	hp.AddRoots(RootFunc(func(m value.Marker) { m.Mark(live) }))
	wl := hp.NewWeak(value.FromManaged(live))
	wd := hp.NewWeak(value.FromManaged(dead))
	prim := hp.NewWeak(value.Int32(7))

	hp.Collect()
	if wl.Get().AsManaged() != live || wl.Cleared() {
		t.Errorf("weak handle to a live cell was cleared")
	}
	if !wd.Get().IsUndefined() || !wd.Cleared() {
		t.Errorf("weak handle to a dead cell was not cleared")
	}
	if prim.Get().Int32() != 7 {
		t.Errorf("weak handle to a primitive changed")
	}
	s := hp.Stats()
	if s.Weak != 2 || s.WeakCleared != 1 {
		t.Errorf("stats = %v", s)
	}

	// A cleared handle can be pointed somewhere else and is tracked again.
	fresh := newCell(hp, t, "fresh")
	wd.Set(value.FromManaged(fresh))
	if hp.Stats().Weak != 3 {
		t.Errorf("retargeted handle was not relinked")
	}
	hp.Collect()
	if !wd.Cleared() {
		t.Errorf("relinked handle was not cleared when its new target died")
	}
}

func TestSweepCallbacks(t *testing.T) {
	hp := testHeap()
	keep := newCell(hp, t, "keep")
	drop := newCell(hp, t, "drop")
	outside := &cell{name: "outside"}
	hp.AddRoots(RootFunc(func(m value.Marker) { m.Mark(keep) }))
	var got map[string]bool
	hp.OnSweep(func(alive func(value.Managed) bool) {
		got = map[string]bool{}
		for _, c := range []*cell{keep, drop, outside} {
			got[c.name] = alive(c)
		}
	})
	hp.Collect()
	if !got["keep"] || got["drop"] || !got["outside"] {
		t.Errorf("alive = %v", got)
	}
}

func TestSafePoint(t *testing.T) {
	hp := testHeap()
	newCell(hp, t, "garbage")
	if hp.SafePoint() {
		t.Fatalf("safe point collected without a request")
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hp.RequestCollect()
	}()
	wg.Wait()
	if !hp.CollectRequested() {
		t.Fatalf("request was lost")
	}
	if !hp.SafePoint() {
		t.Fatalf("pending request did not run at the safe point")
	}
	if hp.Live() != 0 || hp.CollectRequested() {
		t.Errorf("live=%d pending=%v", hp.Live(), hp.CollectRequested())
	}
}

func TestCollectEveryRequests(t *testing.T) {
	hp := NewHeap(config.HeapConfig{MarkStackLimit: 16, CollectEvery: 3})
	newCell(hp, t, "a")
	newCell(hp, t, "b")
	if hp.CollectRequested() {
		t.Fatalf("requested too early")
	}
	newCell(hp, t, "c")
	if !hp.CollectRequested() {
		t.Fatalf("expected a request after 3 allocations")
	}
	hp.SafePoint()
	if hp.Stats().Collections != 1 {
		t.Errorf("collections = %d", hp.Stats().Collections)
	}
}
