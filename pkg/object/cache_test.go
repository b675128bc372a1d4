package object

import (
	"testing"

	"objmodel/pkg/jsstring"
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

func TestPropertyCacheStates(t *testing.T) {
	r := testRealm(0)
	name := jsstring.New("x")
	var ic PropertyCache
	var objs []*Object
	for i := 0; i < 6; i++ {
		o := New(r, value.Null)
		// A distinct leading property per object gives each its own shape.
		mustPut(t, o, Name(string(rune('a'+i))), value.Int32(0))
		mustPut(t, o, Name("x"), value.Int32(int32(i)))
		objs = append(objs, o)
	}
	want := []CacheState{CacheMonomorphic, CachePolymorphic, CachePolymorphic, CachePolymorphic, CacheMegamorphic, CacheMegamorphic}
	for i, o := range objs {
		v, err := o.GetCached(name, &ic, nil)
		if err != nil || v.Int32() != int32(i) {
			t.Fatalf("GetCached on object %d = %v, %v", i, v, err)
		}
		if ic.State() != want[i] {
			t.Errorf("after %d shapes: state %s, want %s", i+1, ic.State(), want[i])
		}
	}
	if _, ok := ic.Lookup(objs[0].Shape()); ok {
		t.Errorf("megamorphic cache should not hit")
	}
}

func TestPropertyCacheHits(t *testing.T) {
	r := testRealm(0)
	name := jsstring.New("v")
	var get, put PropertyCache
	a, b := New(r, value.Null), New(r, value.Null)
	mustPut(t, a, Name("v"), value.Int32(1))
	mustPut(t, b, Name("v"), value.Int32(2))
	for _, o := range []*Object{a, b, a} {
		if _, err := o.GetCached(name, &get, nil); err != nil {
			t.Fatal(err)
		}
	}
	if get.Hits() != 2 || get.Misses() != 1 || get.State() != CacheMonomorphic {
		t.Errorf("get cache: %s", &get)
	}
	if ok, _ := b.PutCached(name, value.Int32(5), &put, nil); !ok {
		t.Fatal("PutCached failed")
	}
	if ok, _ := a.PutCached(name, value.Int32(6), &put, nil); !ok || put.Hits() != 1 {
		t.Errorf("second put should hit: %s", &put)
	}
	if got := mustGet(t, a, Name("v")); got.Int32() != 6 {
		t.Errorf("a.v = %v", got)
	}
}

func TestPropertyCacheFollowsShapeChanges(t *testing.T) {
	r := testRealm(0)
	name := jsstring.New("v")
	var put PropertyCache
	o := New(r, value.Null)
	mustPut(t, o, Name("v"), value.Int32(1))
	o.PutCached(name, value.Int32(2), &put, nil)
	o.DefineOwnProperty(Name("v"), DataProperty(value.Int32(2), prop.Enumerable|prop.Configurable))
	if ok, _ := o.PutCached(name, value.Int32(3), &put, nil); ok {
		t.Errorf("cached store went through a read-only property")
	}
	if got := mustGet(t, o, Name("v")); got.Int32() != 2 {
		t.Errorf("v = %v", got)
	}
	put.Reset()
	if put.State() != CacheUninitialized {
		t.Errorf("Reset left state %s", put.State())
	}
}

func TestPropertyCacheSkipsAccessors(t *testing.T) {
	r := testRealm(0)
	name := jsstring.New("p")
	o := New(r, value.Null)
	o.DefineOwnProperty(Name("p"), AccessorProperty(str("get"), value.Undefined, prop.Configurable))
	var ic PropertyCache
	v, err := o.GetCached(name, &ic, &counter{})
	if err != nil || v.String() != "get" {
		t.Fatalf("GetCached = %v, %v", v, err)
	}
	if ic.State() != CacheUninitialized {
		t.Errorf("accessor lookups must not be cached, state %s", ic.State())
	}
}
