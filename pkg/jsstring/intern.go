package jsstring

import "fmt"

const debugIntern = false

// Interner deduplicates strings: each distinct character sequence has one
// canonical *String. Buckets are keyed by hash; entries are flat leaves.
type Interner struct {
	buckets map[uint32][]*String
	count   int
	nextID  uint32
}

// NewInterner returns an empty table.
func NewInterner() *Interner {
	return &Interner{buckets: make(map[uint32][]*String)}
}

// Intern returns the canonical instance equal to s. If none exists s itself
// is flattened, assigned an id and becomes canonical. A string already
// canonical in another interner stays there; this table gets its own copy.
func (in *Interner) Intern(s *String) *String {
	if s.owner == in {
		return s
	}
	h := s.Hash()
	for _, c := range in.buckets[h] {
		if c.length == s.length && c.flags&flagArrayIndex == s.flags&flagArrayIndex && c.Equals(s) {
			return c
		}
	}
	if s.owner != nil {
		s = FromUTF16(s.Flatten())
	}
	s.Flatten()
	in.nextID++
	s.id = in.nextID
	s.owner = in
	in.buckets[h] = append(in.buckets[h], s)
	in.count++
	if debugIntern {
		fmt.Printf("[intern] #%d %q hash=%08x\n", s.id, s.String(), h)
	}
	return s
}

// InternString internalizes raw characters.
func (in *Interner) InternString(raw string) *String {
	return in.Intern(New(raw))
}

// Lookup returns the canonical instance for raw without creating one.
func (in *Interner) Lookup(raw string) (*String, bool) {
	return in.Find(New(raw))
}

// Find returns the canonical instance equal to s without creating one.
func (in *Interner) Find(s *String) (*String, bool) {
	if s.owner == in {
		return s, true
	}
	for _, c := range in.buckets[s.Hash()] {
		if c.Equals(s) {
			return c, true
		}
	}
	return nil, false
}

// Len returns the number of interned strings.
func (in *Interner) Len() int { return in.count }

// Sweep drops every entry for which alive returns false and returns the
// number removed. Dropped strings keep working but lose their canonical
// status.
func (in *Interner) Sweep(alive func(*String) bool) int {
	removed := 0
	for h, bucket := range in.buckets {
		kept := bucket[:0]
		for _, s := range bucket {
			if alive(s) {
				kept = append(kept, s)
				continue
			}
			s.owner = nil
			s.id = 0
			removed++
		}
		if len(kept) == 0 {
			delete(in.buckets, h)
		} else {
			clear(bucket[len(kept):])
			in.buckets[h] = kept
		}
	}
	in.count -= removed
	return removed
}

// ForEach calls fn for every interned string in unspecified order.
func (in *Interner) ForEach(fn func(*String)) {
	for _, bucket := range in.buckets {
		for _, s := range bucket {
			fn(s)
		}
	}
}

// IsInterned reports whether s is the canonical instance of its contents in
// some interner.
func (s *String) IsInterned() bool { return s.owner != nil }

// InternedBy reports whether s is canonical in in.
func (s *String) InternedBy(in *Interner) bool { return in != nil && s.owner == in }

// ID returns the interner-assigned identity of s, 0 when not interned.
// Ids are unique per Interner and never reused; compare them only between
// strings with the same owner.
func (s *String) ID() uint32 { return s.id }
