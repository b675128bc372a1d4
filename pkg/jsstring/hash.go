package jsstring

import "objmodel/pkg/value"

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// Hash returns the cached hash of s, flattening s on first use. Canonical
// array-index strings ("0", "42", never "042") hash to their numeric value
// and carry the array-index flag; see ArrayIndex.
func (s *String) Hash() uint32 {
	if s.flags&flagHashValid != 0 {
		return s.hash
	}
	chars := s.Flatten()
	if idx, ok := parseArrayIndex(chars); ok {
		s.hash = idx
		s.flags |= flagArrayIndex
	} else {
		h := uint32(fnvOffset32)
		for _, c := range chars {
			h ^= uint32(c & 0xFF)
			h *= fnvPrime32
			h ^= uint32(c >> 8)
			h *= fnvPrime32
		}
		s.hash = h
	}
	s.flags |= flagHashValid
	return s.hash
}

// ArrayIndex reports whether s is the canonical spelling of an array index.
func (s *String) ArrayIndex() (uint32, bool) {
	h := s.Hash()
	if s.flags&flagArrayIndex == 0 {
		return 0, false
	}
	return h, true
}

func parseArrayIndex(chars []uint16) (uint32, bool) {
	if len(chars) == 0 || len(chars) > 10 {
		return 0, false
	}
	if chars[0] == '0' {
		return 0, len(chars) == 1
	}
	var n uint64
	for _, c := range chars {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	if n > value.MaxArrayIndex {
		return 0, false
	}
	return uint32(n), true
}

// Equals compares s and o by content. Identity is the fast path; two strings
// canonical in the same interner with different identities are never equal.
func (s *String) Equals(o *String) bool {
	if s == o {
		return true
	}
	if o == nil {
		return false
	}
	if s.owner != nil && s.owner == o.owner {
		return false
	}
	if s.length != o.length {
		return false
	}
	if s.flags&flagHashValid != 0 && o.flags&flagHashValid != 0 {
		if s.hash != o.hash || s.flags&flagArrayIndex != o.flags&flagArrayIndex {
			return false
		}
	}
	a, b := s.Flatten(), o.Flatten()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Compare orders a and b by UTF-16 code units, returning -1, 0 or +1.
func Compare(a, b *String) int {
	if a == b {
		return 0
	}
	x, y := a.Flatten(), b.Flatten()
	n := min(len(x), len(y))
	for i := 0; i < n; i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(x) < len(y):
		return -1
	case len(x) > len(y):
		return 1
	}
	return 0
}

// EqualsString compares s with a Go string.
func (s *String) EqualsString(raw string) bool {
	return s.Equals(New(raw))
}
