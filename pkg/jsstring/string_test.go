package jsstring

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"objmodel/pkg/errors"
)

func mustConcat(t *testing.T, a, b *String) *String {
	t.Helper()
	s, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	return s
}

func TestConcatDefersCopy(t *testing.T) {
	a, b := New("hello, "), New("world")
	s := mustConcat(t, a, b)
	if s.IsFlat() {
		t.Fatalf("expected a concatenation node, got a leaf")
	}
	if s.Len() != 12 || s.Depth() != 1 {
		t.Errorf("expected len 12 depth 1, got len %d depth %d", s.Len(), s.Depth())
	}
	if got := s.String(); got != "hello, world" {
		t.Errorf("String() = %q", got)
	}
	if !s.IsFlat() {
		t.Errorf("expected String() to flatten in place")
	}
}

func TestConcatWithEmptyReturnsOperand(t *testing.T) {
	a := New("abc")
	if s := mustConcat(t, a, New("")); s != a {
		t.Errorf("expected a+\"\" to return a itself")
	}
	if s := mustConcat(t, New(""), a); s != a {
		t.Errorf("expected \"\"+a to return a itself")
	}
}

func TestFlattenPreservesIdentity(t *testing.T) {
	s := mustConcat(t, New("ab"), New("cd"))
	holder := map[*String]int{s: 1}
	s.Flatten()
	if holder[s] != 1 || !s.IsFlat() {
		t.Errorf("flattening must keep the *String identity")
	}
}

func TestFlattenIdempotence(t *testing.T) {
	s := mustConcat(t, mustConcat(t, New("x"), New("yz")), New("w"))
	flat := s.String()
	again := mustConcat(t, FromUTF16(s.Flatten()), New(""))
	if again.String() != flat || !again.Equals(s) {
		t.Errorf("flatten(concat(flatten(s), \"\")) = %q, want %q", again.String(), flat)
	}
}

func TestOneCharLeavesEqualDirectConstruction(t *testing.T) {
	const text = "the quick brown fox jumps over the lazy dog"
	s := New("")
	for i := 0; i < len(text); i++ {
		s = mustConcat(t, s, New(text[i:i+1]))
	}
	direct := New(text)
	if !s.Equals(direct) {
		t.Errorf("rope %q != direct %q", s.String(), direct.String())
	}
	if s.Hash() != direct.Hash() {
		t.Errorf("hash mismatch between rope and direct construction")
	}
}

func TestEagerFlattenBoundsDepth(t *testing.T) {
	limits := Limits{FlattenMinLength: 16, FlattenRatio: 4, MaxDepth: 1000, MaxLength: 1 << 20}
	s := New("")
	for i := 0; i < 200; i++ {
		var err error
		s, err = limits.Concat(s, New("a"))
		if err != nil {
			t.Fatal(err)
		}
	}
	if s.Depth() >= 200-68 {
		t.Errorf("expected eager flattening to cut the rope, got depth %d", s.Depth())
	}
	if s.String() != strings.Repeat("a", 200) {
		t.Errorf("content corrupted by eager flattening")
	}
}

func TestMaxDepthFlattens(t *testing.T) {
	limits := Limits{FlattenMinLength: 1 << 20, FlattenRatio: 64, MaxDepth: 8, MaxLength: 1 << 20}
	s := New("a")
	for i := 0; i < 20; i++ {
		s, _ = limits.Concat(s, New("b"))
		if s.Depth() > 8 {
			t.Fatalf("depth %d exceeds MaxDepth", s.Depth())
		}
	}
}

func TestConcatLengthLimit(t *testing.T) {
	limits := Limits{FlattenMinLength: 256, FlattenRatio: 64, MaxDepth: 64, MaxLength: 5}
	_, err := limits.Concat(New("abc"), New("def"))
	re, ok := err.(*errors.RangeError)
	if !ok {
		t.Fatalf("expected *RangeError, got %T (%v)", err, err)
	}
	if re.Kind() != "Range" || re.Op() != "jsstring.Concat" {
		t.Errorf("unexpected error %v", re)
	}
}

func TestSubstring(t *testing.T) {
	base := mustConcat(t, New("hello "), New("world"))
	sub := Substring(base, 3, 6)
	if sub.String() != "lo wor" {
		t.Errorf("Substring = %q", sub.String())
	}
	subsub := Substring(sub, 1, 3)
	if subsub.base != base || subsub.offset != 4 {
		t.Errorf("expected substring of substring to reference the base directly")
	}
	if subsub.String() != "o w" {
		t.Errorf("nested Substring = %q", subsub.String())
	}
	if Substring(base, 0, 100) != base {
		t.Errorf("expected whole-range substring to return the string itself")
	}
	if Substring(base, 50, 2).Len() != 0 {
		t.Errorf("expected out-of-range substring to be empty")
	}
}

func TestCharAt(t *testing.T) {
	s := mustConcat(t, New("ab"), New("é"))
	if c, ok := s.CharAt(2); !ok || c != 0xE9 {
		t.Errorf("CharAt(2) = %x, %v", c, ok)
	}
	if _, ok := s.CharAt(3); ok {
		t.Errorf("expected CharAt past end to fail")
	}
}

func TestSurrogatePairs(t *testing.T) {
	s := New("a😀b")
	if s.Len() != 4 {
		t.Errorf("expected 4 UTF-16 units, got %d", s.Len())
	}
	if s.String() != "a😀b" {
		t.Errorf("round trip failed: %q", s.String())
	}
}

func TestArrayIndexHash(t *testing.T) {
	tests := []struct {
		in    string
		index uint32
		ok    bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"4294967294", 4294967294, true},
		{"4294967295", 0, false},
		{"042", 0, false},
		{"-1", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"@42", 0, false},
	}
	for _, tt := range tests {
		s := New(tt.in)
		idx, ok := s.ArrayIndex()
		if ok != tt.ok || idx != tt.index {
			t.Errorf("ArrayIndex(%q) = (%d, %v), want (%d, %v)", tt.in, idx, ok, tt.index, tt.ok)
		}
		if ok && s.Hash() != tt.index {
			t.Errorf("expected array index %q to hash to its value", tt.in)
		}
	}
}

func TestEqualsChecksProvenance(t *testing.T) {
	idx := New("42")
	idx.Hash()
	other := New("*+")
	other.hash, other.flags = 42, flagHashValid
	if idx.Equals(other) {
		t.Errorf("strings with equal hash but different provenance must differ")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"ab", "abc", -1},
		{"abc", "abc", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		if got := Compare(New(tt.a), New(tt.b)); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := map[string]float64{
		"":          0,
		"  12  ":    12,
		"  7\n":     7,
		"\u00a07\n": 7,
		"0x1F":      31,
		"0b101":     5,
		"0o17":      15,
		"1.5e3":     1500,
		".5":        0.5,
		"5.":        5,
		"-Infinity": math.Inf(-1),
	}
	for in, want := range tests {
		if got := New(in).ToNumber(); got != want {
			t.Errorf("ToNumber(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"abc", "infinity", "inf", "NaN", "1_000", "0x", "1e", "--1", "0x1p3"} {
		if got := New(in).ToNumber(); !math.IsNaN(got) {
			t.Errorf("ToNumber(%q) = %v, want NaN", in, got)
		}
	}
}

func FuzzRopeFlatten(f *testing.F) {
	f.Add("hello", "world", uint8(2), uint8(3))
	f.Add("", "x", uint8(0), uint8(0))
	f.Add("😀ab", "c", uint8(1), uint8(9))
	f.Fuzz(func(t *testing.T, a, b string, from, n uint8) {
		if !utf8.ValidString(a) || !utf8.ValidString(b) {
			t.Skip()
		}
		left, right := New(a), New(b)
		direct := New(a + b)
		rope, err := Concat(left, right)
		if err != nil {
			t.Skip()
		}
		sub := Substring(rope, uint32(from), uint32(n))
		want := Substring(direct, uint32(from), uint32(n))
		if !sub.Equals(want) {
			t.Fatalf("substring mismatch: %q vs %q", sub.String(), want.String())
		}
		if !rope.Equals(direct) || rope.String() != direct.String() {
			t.Fatalf("rope %q != %q", rope.String(), direct.String())
		}
	})
}
