package object

import (
	"fmt"

	"objmodel/pkg/jsstring"
	"objmodel/pkg/shape"
	"objmodel/pkg/value"
)

// CacheState is the state of one property access site.
type CacheState uint8

const (
	CacheUninitialized CacheState = iota
	CacheMonomorphic              // one shape
	CachePolymorphic              // up to polymorphicLimit shapes
	CacheMegamorphic              // gave up; every access does a full lookup
)

const polymorphicLimit = 4

func (s CacheState) String() string {
	switch s {
	case CacheMonomorphic:
		return "monomorphic"
	case CachePolymorphic:
		return "polymorphic"
	case CacheMegamorphic:
		return "megamorphic"
	default:
		return "uninitialized"
	}
}

type cacheEntry struct {
	shape *shape.Shape
	slot  uint32
}

// PropertyCache remembers, per shape, the slot a named access resolved to.
// Attributes are part of a shape, so an entry stays valid for as long as
// the object keeps that shape.
type PropertyCache struct {
	state   CacheState
	entries [polymorphicLimit]cacheEntry
	count   int
	hits    uint32
	misses  uint32
}

func (ic *PropertyCache) State() CacheState { return ic.state }
func (ic *PropertyCache) Hits() uint32      { return ic.hits }
func (ic *PropertyCache) Misses() uint32    { return ic.misses }

// Lookup returns the cached slot for s.
func (ic *PropertyCache) Lookup(s *shape.Shape) (uint32, bool) {
	for i := 0; i < ic.count; i++ {
		if ic.entries[i].shape != s {
			continue
		}
		ic.hits++
		if i > 0 {
			e := ic.entries[i]
			copy(ic.entries[1:i+1], ic.entries[0:i])
			ic.entries[0] = e
		}
		return ic.entries[0].slot, true
	}
	ic.misses++
	return 0, false
}

// Update records slot for s.
func (ic *PropertyCache) Update(s *shape.Shape, slot uint32) {
	if ic.state == CacheMegamorphic {
		return
	}
	for i := 0; i < ic.count; i++ {
		if ic.entries[i].shape == s {
			ic.entries[i].slot = slot
			return
		}
	}
	if ic.count == polymorphicLimit {
		ic.state = CacheMegamorphic
		ic.count = 0
		ic.entries = [polymorphicLimit]cacheEntry{}
		return
	}
	ic.entries[ic.count] = cacheEntry{shape: s, slot: slot}
	ic.count++
	if ic.count == 1 {
		ic.state = CacheMonomorphic
	} else {
		ic.state = CachePolymorphic
	}
}

// Reset forgets every entry. Hit and miss counts are kept.
func (ic *PropertyCache) Reset() {
	ic.state = CacheUninitialized
	ic.count = 0
	ic.entries = [polymorphicLimit]cacheEntry{}
}

func (ic *PropertyCache) String() string {
	if ic.state == CachePolymorphic {
		return fmt.Sprintf("polymorphic(%d) hits=%d misses=%d", ic.count, ic.hits, ic.misses)
	}
	return fmt.Sprintf("%s hits=%d misses=%d", ic.state, ic.hits, ic.misses)
}

// GetCached reads the named property through ic. Only own data
// properties are cached; everything else falls back to Get.
func (o *Object) GetCached(name *jsstring.String, ic *PropertyCache, inv Invoker) (value.Value, error) {
	if slot, ok := ic.Lookup(o.shape); ok {
		return o.slots[slot], nil
	}
	if slot, attrs, ok := o.shape.Find(name); ok && attrs.IsData() {
		ic.Update(o.shape, slot)
		return o.slots[slot], nil
	}
	return o.Get(NameOf(name), inv)
}

// PutCached assigns the named property through ic. Only writable own data
// properties are cached.
func (o *Object) PutCached(name *jsstring.String, v value.Value, ic *PropertyCache, inv Invoker) (bool, error) {
	if slot, ok := ic.Lookup(o.shape); ok {
		o.slots[slot] = v
		return true, nil
	}
	k := NameOf(name)
	if o.isLength(k) {
		return o.Put(k, v, inv)
	}
	if slot, attrs, ok := o.shape.Find(name); ok && attrs.IsWritable() {
		ic.Update(o.shape, slot)
		o.slots[slot] = v
		return true, nil
	}
	return o.Put(k, v, inv)
}
