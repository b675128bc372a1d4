package gc

import (
	"fmt"
	"sync/atomic"

	"objmodel/pkg/config"
	"objmodel/pkg/errors"
	"objmodel/pkg/value"
)

// RootSet is anything that can mark the cells it holds directly.
type RootSet interface {
	MarkRoots(m value.Marker)
}

// RootFunc adapts a function to RootSet.
type RootFunc func(m value.Marker)

func (f RootFunc) MarkRoots(m value.Marker) { f(m) }

// SweepFunc runs once per collection after marking. alive reports whether
// a cell survived; tables holding cells weakly (the interner) prune
// themselves with it.
type SweepFunc func(alive func(value.Managed) bool)

// Stats describes the heap after the last collection.
type Stats struct {
	Live        int
	Allocated   int
	Collections int
	LastFreed   int
	TotalFreed  int
	WeakCleared int
	Persistent  int
	Weak        int
	Drains      int
}

func (s Stats) String() string {
	return fmt.Sprintf("live=%d allocated=%d collections=%d freed=%d (last %d) weak-cleared=%d handles=%d/%d drains=%d",
		s.Live, s.Allocated, s.Collections, s.TotalFreed, s.LastFreed, s.WeakCleared, s.Persistent, s.Weak, s.Drains)
}

// Heap tracks every allocated cell. The runtime is single threaded; only
// RequestCollect may be called from other goroutines.
type Heap struct {
	cfg        config.HeapConfig
	cells      map[value.Managed]struct{}
	roots      []RootSet
	sweepers   []SweepFunc
	persistent handleList
	weak       handleList

	sinceCollect int
	interrupt    atomic.Bool
	collecting   bool
	stats        Stats
}

// NewHeap returns an empty heap.
func NewHeap(cfg config.HeapConfig) *Heap {
	return &Heap{cfg: cfg, cells: make(map[value.Managed]struct{})}
}

// AddRoots registers a root set marked at the start of every collection.
func (hp *Heap) AddRoots(r RootSet) { hp.roots = append(hp.roots, r) }

// OnSweep registers fn to run once per collection.
func (hp *Heap) OnSweep(fn SweepFunc) { hp.sweepers = append(hp.sweepers, fn) }

// Allocate registers c. When the heap is at MaxCells it collects first and
// fails with an allocation error if that frees nothing. Allocation never
// collects while another collection runs.
func (hp *Heap) Allocate(c value.Managed) error {
	if _, ok := hp.cells[c]; ok {
		return nil
	}
	if hp.cfg.MaxCells > 0 && len(hp.cells) >= hp.cfg.MaxCells {
		if !hp.collecting {
			hp.Collect()
		}
		if len(hp.cells) >= hp.cfg.MaxCells {
			return errors.NewAllocationError("gc.Allocate", "heap limit of %d cells reached", hp.cfg.MaxCells)
		}
	}
	hp.cells[c] = struct{}{}
	hp.stats.Allocated++
	hp.sinceCollect++
	if hp.cfg.CollectEvery > 0 && hp.sinceCollect >= hp.cfg.CollectEvery {
		hp.RequestCollect()
	}
	return nil
}

// Contains reports whether c is registered.
func (hp *Heap) Contains(c value.Managed) bool {
	_, ok := hp.cells[c]
	return ok
}

// Live returns the number of registered cells.
func (hp *Heap) Live() int { return len(hp.cells) }

// RequestCollect asks for a collection at the next safe point. It is safe
// to call from any goroutine.
func (hp *Heap) RequestCollect() { hp.interrupt.Store(true) }

// CollectRequested reports whether a collection is pending.
func (hp *Heap) CollectRequested() bool { return hp.interrupt.Load() }

// SafePoint runs a pending collection. Callers invoke it only between
// complete operations, never inside a shape transition or an array
// reallocation.
func (hp *Heap) SafePoint() bool {
	if !hp.interrupt.CompareAndSwap(true, false) {
		return false
	}
	hp.Collect()
	return true
}

// Collect runs a full cycle: mark from roots and persistent handles, null
// dead weak targets, run sweep callbacks, drop unmarked cells, then unlink
// released and cleared handles. It returns the number of cells freed.
func (hp *Heap) Collect() int {
	if hp.collecting {
		return 0
	}
	hp.collecting = true
	defer func() { hp.collecting = false }()
	hp.interrupt.Store(false)

	ms := NewMarkStack(hp.cfg.MarkStackLimit)
	for _, r := range hp.roots {
		r.MarkRoots(ms)
	}
	hp.persistent.each(func(h *Handle) {
		if !h.released {
			ms.MarkValue(h.target)
		}
	})
	ms.Drain()

	cleared := hp.clearWeak(ms)

	alive := func(c value.Managed) bool {
		if ms.IsMarked(c) {
			return true
		}
		_, registered := hp.cells[c]
		return !registered
	}
	for _, fn := range hp.sweepers {
		fn(alive)
	}

	freed := 0
	for c := range hp.cells {
		if !ms.IsMarked(c) {
			delete(hp.cells, c)
			freed++
		}
	}
	unlinked := hp.sweepHandles()

	hp.sinceCollect = 0
	hp.stats.Collections++
	hp.stats.LastFreed = freed
	hp.stats.TotalFreed += freed
	hp.stats.WeakCleared += cleared
	hp.stats.Drains += ms.InlineDrains()
	if debugGC {
		fmt.Printf("[gc] cycle %d: marked=%d freed=%d weak-cleared=%d unlinked=%d\n",
			hp.stats.Collections, ms.Marked(), freed, cleared, unlinked)
	}
	return freed
}

// Stats returns a snapshot of the heap statistics.
func (hp *Heap) Stats() Stats {
	s := hp.stats
	s.Live = len(hp.cells)
	s.Persistent = hp.persistent.n
	s.Weak = hp.weak.n
	return s
}
