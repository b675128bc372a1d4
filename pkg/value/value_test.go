package value

import (
	"math"
	"testing"
)

type testCell struct {
	child Value
}

func (c *testCell) MarkObjects(m Marker) { MarkValue(m, c.child) }
func (c *testCell) TypeOf() string       { return "object" }

type recordingMarker struct {
	seen []Managed
}

func (r *recordingMarker) Mark(c Managed) { r.seen = append(r.seen, c) }

func TestZeroValueIsUndefined(t *testing.T) {
	var v Value
	if !v.IsUndefined() || v.Kind() != KindUndefined {
		t.Errorf("expected zero Value to be undefined, got kind %v", v.Kind())
	}
	if v != Undefined {
		t.Errorf("expected zero Value == Undefined")
	}
}

func TestKindsAreExclusive(t *testing.T) {
	cell := &testCell{}
	tests := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"undefined", Undefined, KindUndefined},
		{"null", Null, KindNull},
		{"true", True, KindBoolean},
		{"false", False, KindBoolean},
		{"int", Int32(-7), KindInt32},
		{"int max", Int32(math.MaxInt32), KindInt32},
		{"double", Double(1.5), KindDouble},
		{"negative zero", Double(math.Copysign(0, -1)), KindDouble},
		{"-inf", Double(math.Inf(-1)), KindDouble},
		{"-max", Double(-math.MaxFloat64), KindDouble},
		{"nan", Double(math.NaN()), KindDouble},
		{"empty", Empty, KindEmpty},
		{"managed", FromManaged(cell), KindManaged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Kind(); got != tt.kind {
				t.Fatalf("Kind() = %v, want %v", got, tt.kind)
			}
			checks := map[Kind]bool{
				KindUndefined: tt.v.IsUndefined(),
				KindNull:      tt.v.IsNull(),
				KindBoolean:   tt.v.IsBoolean(),
				KindInt32:     tt.v.IsInt32(),
				KindDouble:    tt.v.IsDouble(),
				KindManaged:   tt.v.IsManaged(),
				KindEmpty:     tt.v.IsEmpty(),
			}
			for k, ok := range checks {
				if ok != (k == tt.kind) {
					t.Errorf("type test for %v returned %v on a %v value", k, ok, tt.kind)
				}
			}
		})
	}
}

func TestDoubleRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 0.1, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1)} {
		if got := Double(f).Double(); got != f {
			t.Errorf("Double(%v).Double() = %v", f, got)
		}
	}
	if !math.Signbit(Double(math.Copysign(0, -1)).Double()) {
		t.Errorf("expected -0 to keep its sign")
	}
}

func TestNaNIsCanonical(t *testing.T) {
	odd := math.Float64frombits(0xFFFF_0000_0000_0001)
	a, b := Double(odd), Double(math.NaN())
	if a.Bits() != b.Bits() {
		t.Errorf("expected all NaNs to share one encoding, got %x and %x", a.Bits(), b.Bits())
	}
	if !a.IsDouble() || !math.IsNaN(a.Double()) {
		t.Errorf("expected canonical NaN double")
	}
}

func TestNumberPrefersInt32(t *testing.T) {
	if v := Number(42); !v.IsInt32() || v.Int32() != 42 {
		t.Errorf("expected int32 42, got %v (%v)", v, v.Kind())
	}
	if v := Number(math.Copysign(0, -1)); !v.IsDouble() {
		t.Errorf("expected -0 to stay a double")
	}
	if v := Number(2147483648); !v.IsDouble() {
		t.Errorf("expected 2^31 to be a double")
	}
	if v := Number(0.5); !v.IsDouble() {
		t.Errorf("expected 0.5 to be a double")
	}
}

func TestCoercions(t *testing.T) {
	if Undefined.ToNumber() == Undefined.ToNumber() {
		t.Errorf("expected undefined -> NaN")
	}
	if Null.ToNumber() != 0 || True.ToNumber() != 1 {
		t.Errorf("null/true number coercion mismatch")
	}
	if Double(4294967296 + 5).ToInt32() != 5 {
		t.Errorf("expected ToInt32 to wrap modulo 2^32")
	}
	if Double(-1).ToUint32() != math.MaxUint32 {
		t.Errorf("expected ToUint32(-1) = 2^32-1")
	}
	if Double(2147483648).ToInt32() != math.MinInt32 {
		t.Errorf("expected ToInt32(2^31) = -2^31")
	}
	if Double(math.NaN()).ToInt32() != 0 || Double(math.Inf(1)).ToUint32() != 0 {
		t.Errorf("expected NaN/Infinity to convert to 0")
	}
	if Double(-3.7).ToInteger() != -3 {
		t.Errorf("expected ToInteger(-3.7) = -3")
	}
	if Double(0).ToBoolean() || Double(math.NaN()).ToBoolean() || !Int32(3).ToBoolean() {
		t.Errorf("ToBoolean mismatch")
	}
	if !FromManaged(&testCell{}).ToBoolean() {
		t.Errorf("expected objects to be truthy")
	}
}

func TestToArrayIndex(t *testing.T) {
	tests := []struct {
		v   Value
		idx uint32
		ok  bool
	}{
		{Int32(0), 0, true},
		{Int32(-1), 0, false},
		{Double(4294967294), 4294967294, true},
		{Double(4294967295), 0, false},
		{Double(1.5), 0, false},
		{Null, 0, false},
	}
	for _, tt := range tests {
		idx, ok := tt.v.ToArrayIndex()
		if ok != tt.ok || (ok && idx != tt.idx) {
			t.Errorf("ToArrayIndex(%v) = (%d, %v), want (%d, %v)", tt.v, idx, ok, tt.idx, tt.ok)
		}
	}
}

func TestSameValueZero(t *testing.T) {
	negZero := Double(math.Copysign(0, -1))
	if !SameValueZero(Int32(0), negZero) {
		t.Errorf("expected +0 SameValueZero -0")
	}
	if SameValue(Int32(0), negZero) {
		t.Errorf("expected +0 not SameValue -0")
	}
	if !SameValueZero(NaN, Double(math.NaN())) || !SameValue(NaN, NaN) {
		t.Errorf("expected NaN to equal NaN")
	}
	if StrictEquals(NaN, NaN) {
		t.Errorf("expected NaN !== NaN")
	}
	if !StrictEquals(Int32(3), Double(3)) {
		t.Errorf("expected int32 3 === double 3")
	}
	a, b := &testCell{}, &testCell{}
	if SameValueZero(FromManaged(a), FromManaged(b)) {
		t.Errorf("expected distinct cells to differ")
	}
	if !SameValueZero(FromManaged(a), FromManaged(a)) {
		t.Errorf("expected a cell to equal itself")
	}
	if SameValueZero(Undefined, Null) {
		t.Errorf("expected undefined and null to differ")
	}
}

func TestMarkValue(t *testing.T) {
	inner := &testCell{}
	outer := &testCell{child: FromManaged(inner)}
	m := &recordingMarker{}
	outer.MarkObjects(m)
	MarkValues(m, []Value{Int32(1), FromManaged(outer), Undefined})
	if len(m.seen) != 2 || m.seen[0] != Managed(inner) || m.seen[1] != Managed(outer) {
		t.Errorf("unexpected mark sequence %v", m.seen)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		1:            "1",
		-0.5:         "-0.5",
		1e21:         "1e+21",
		1e-7:         "1e-7",
		123456789012: "123456789012",
	}
	for f, want := range tests {
		if got := FormatNumber(f); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", f, got, want)
		}
	}
	if FormatNumber(math.Copysign(0, -1)) != "0" {
		t.Errorf("expected -0 to format as 0")
	}
}
