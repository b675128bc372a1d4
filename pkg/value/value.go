package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the discriminant of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInt32
	KindDouble
	KindManaged
	KindEmpty // Internal marker for array holes; never visible to user code
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt32:
		return "int32"
	case KindDouble:
		return "double"
	case KindManaged:
		return "managed"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Bit layout of Value.bits
//
//	top 16 bits 0x0000  immediates: undefined, null, booleans, empty, managed tag
//	top 16 bits 0xFFFE  int32 in the low 32 bits
//	anything else       double, stored as its IEEE bits + doubleEncodeOffset
//
// undefined encodes as 0 so the zero Value is undefined. Only the canonical
// quiet NaN is a legal double: any other NaN payload would, after the offset,
// collide with the immediate or int32 ranges.
const (
	doubleEncodeOffset = uint64(1) << 49
	int32Tag           = uint64(0xFFFE) << 48
	tagShift           = 48

	immUndefined = uint64(0x0)
	immNull      = uint64(0x2)
	immFalse     = uint64(0x6)
	immTrue      = uint64(0x7)
	immEmpty     = uint64(0xA)
	immManaged   = uint64(0xC)

	canonicalNaN = uint64(0x7FF8000000000000)
)

// Value is a fixed-size dynamic value. The discriminant lives in bits; heap
// references are carried in ref as well so the Go collector can see them.
type Value struct {
	bits uint64
	ref  Managed
}

var (
	Undefined = Value{bits: immUndefined}
	Null      = Value{bits: immNull}
	True      = Value{bits: immTrue}
	False     = Value{bits: immFalse}
	Empty     = Value{bits: immEmpty}
	NaN       = Value{bits: canonicalNaN + doubleEncodeOffset}
)

// Bool returns the boolean Value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int32 returns an int32-tagged Value.
func Int32(i int32) Value {
	return Value{bits: int32Tag | uint64(uint32(i))}
}

// Double returns a double-tagged Value. NaN payloads are canonicalised.
func Double(f float64) Value {
	b := math.Float64bits(f)
	if f != f {
		b = canonicalNaN
	}
	return Value{bits: b + doubleEncodeOffset}
}

// Number returns an int32 Value when f is exactly representable as one
// (and is not -0), otherwise a double.
func Number(f float64) Value {
	if f >= math.MinInt32 && f <= math.MaxInt32 {
		i := int32(f)
		if float64(i) == f && !(i == 0 && math.Signbit(f)) {
			return Int32(i)
		}
	}
	return Double(f)
}

// FromManaged wraps a heap cell. A nil cell yields Null.
func FromManaged(m Managed) Value {
	if m == nil {
		return Null
	}
	return Value{bits: immManaged, ref: m}
}

// Bits exposes the raw encoded cell (for hashing and diagnostics).
func (v Value) Bits() uint64 { return v.bits }

// --- Type tests ---

func (v Value) Kind() Kind {
	switch {
	case v.bits>>tagShift == 0:
		switch v.bits {
		case immUndefined:
			return KindUndefined
		case immNull:
			return KindNull
		case immFalse, immTrue:
			return KindBoolean
		case immEmpty:
			return KindEmpty
		case immManaged:
			return KindManaged
		}
		return KindUndefined
	case v.bits&int32Tag == int32Tag:
		return KindInt32
	default:
		return KindDouble
	}
}

func (v Value) IsUndefined() bool { return v.bits == immUndefined }
func (v Value) IsNull() bool      { return v.bits == immNull }
func (v Value) IsNullish() bool   { return v.bits == immUndefined || v.bits == immNull }
func (v Value) IsBoolean() bool   { return v.bits == immTrue || v.bits == immFalse }
func (v Value) IsEmpty() bool     { return v.bits == immEmpty }
func (v Value) IsManaged() bool   { return v.bits == immManaged }
func (v Value) IsInt32() bool     { return v.bits&int32Tag == int32Tag }
func (v Value) IsDouble() bool    { return v.bits>>tagShift != 0 && v.bits&int32Tag != int32Tag }
func (v Value) IsNumber() bool    { return v.bits>>tagShift != 0 }

// IsString reports whether v references a managed string cell.
func (v Value) IsString() bool {
	if v.bits != immManaged {
		return false
	}
	t, ok := v.ref.(Typer)
	return ok && t.TypeOf() == "string"
}

// IsObject reports whether v references a managed cell that is not a string.
func (v Value) IsObject() bool {
	return v.bits == immManaged && !v.IsString()
}

// --- Accessors (callers must check the kind first) ---

func (v Value) Boolean() bool { return v.bits == immTrue }

func (v Value) Int32() int32 { return int32(uint32(v.bits)) }

func (v Value) Double() float64 { return math.Float64frombits(v.bits - doubleEncodeOffset) }

// AsManaged returns the referenced heap cell, or nil for non-managed values.
func (v Value) AsManaged() Managed {
	if v.bits != immManaged {
		return nil
	}
	return v.ref
}

// AsNumber returns the numeric payload of an int32 or double; NaN otherwise.
func (v Value) AsNumber() float64 {
	if v.IsInt32() {
		return float64(v.Int32())
	}
	if v.IsDouble() {
		return v.Double()
	}
	return math.NaN()
}

// TypeOf returns the ECMAScript typeof string.
func (v Value) TypeOf() string {
	switch v.Kind() {
	case KindUndefined, KindEmpty:
		return "undefined"
	case KindNull:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindInt32, KindDouble:
		return "number"
	default:
		if t, ok := v.ref.(Typer); ok {
			return t.TypeOf()
		}
		return "object"
	}
}

// --- Coercions ---

// ToNumber implements the primitive part of ECMAScript ToNumber. Managed
// cells that are not NumberConverters (objects) yield NaN; ToPrimitive is the
// host's job.
func (v Value) ToNumber() float64 {
	switch v.Kind() {
	case KindInt32:
		return float64(v.Int32())
	case KindDouble:
		return v.Double()
	case KindBoolean:
		if v.Boolean() {
			return 1
		}
		return 0
	case KindNull:
		return 0
	case KindManaged:
		if nc, ok := v.ref.(NumberConverter); ok {
			return nc.ToNumber()
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// ToBoolean implements ECMAScript ToBoolean.
func (v Value) ToBoolean() bool {
	switch v.Kind() {
	case KindBoolean:
		return v.Boolean()
	case KindInt32:
		return v.Int32() != 0
	case KindDouble:
		f := v.Double()
		return f != 0 && f == f
	case KindManaged:
		if t, ok := v.ref.(Truthy); ok {
			return t.Truthy()
		}
		return true
	default:
		return false
	}
}

// ToInteger truncates towards zero; NaN becomes 0, infinities are kept.
func (v Value) ToInteger() float64 {
	if v.IsInt32() {
		return float64(v.Int32())
	}
	f := v.ToNumber()
	if f != f {
		return 0
	}
	if math.IsInf(f, 0) {
		return f
	}
	return math.Trunc(f)
}

// ToInt32 implements ECMAScript ToInt32 (modulo 2^32 wrapping).
func (v Value) ToInt32() int32 {
	if v.IsInt32() {
		return v.Int32()
	}
	return int32(wrapUint32(v.ToNumber()))
}

// ToUint32 implements ECMAScript ToUint32.
func (v Value) ToUint32() uint32 {
	if v.IsInt32() {
		return uint32(v.Int32())
	}
	return wrapUint32(v.ToNumber())
}

func wrapUint32(f float64) uint32 {
	if f != f || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	return uint32(int64(m))
}

// MaxArrayIndex is the largest legal array index (2^32 - 2).
const MaxArrayIndex = math.MaxUint32 - 1

// ToArrayIndex reports whether v is a number that is exactly an array index.
func (v Value) ToArrayIndex() (uint32, bool) {
	if v.IsInt32() {
		i := v.Int32()
		return uint32(i), i >= 0
	}
	if !v.IsDouble() {
		return 0, false
	}
	f := v.Double()
	if f < 0 || f > MaxArrayIndex || f != math.Trunc(f) {
		return 0, false
	}
	return uint32(f), true
}

// --- Equality ---

// SameValueZero is ECMAScript SameValueZero: +0 equals -0 and NaN equals NaN.
// Used for collection keys.
func SameValueZero(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.AsNumber(), b.AsNumber()
		if x != x && y != y {
			return true
		}
		return x == y
	}
	return sameNonNumber(a, b)
}

// SameValue is ECMAScript SameValue: like SameValueZero but +0 and -0 differ.
func SameValue(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.AsNumber(), b.AsNumber()
		if x != x && y != y {
			return true
		}
		if x == 0 && y == 0 {
			return math.Signbit(x) == math.Signbit(y)
		}
		return x == y
	}
	return sameNonNumber(a, b)
}

// StrictEquals is ECMAScript `===`.
func StrictEquals(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() == b.AsNumber()
	}
	return sameNonNumber(a, b)
}

func sameNonNumber(a, b Value) bool {
	if a.bits != b.bits {
		return false
	}
	if a.bits != immManaged {
		return true
	}
	if a.ref == b.ref {
		return true
	}
	if eq, ok := a.ref.(Equaler); ok {
		return eq.EqualsManaged(b.ref)
	}
	return false
}

// --- Formatting ---

// String returns a developer-friendly representation, similar to a REPL.
func (v Value) String() string {
	switch v.Kind() {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		if v.Boolean() {
			return "true"
		}
		return "false"
	case KindInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case KindDouble:
		return FormatNumber(v.Double())
	case KindEmpty:
		return "<hole>"
	default:
		if s, ok := v.ref.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("<%s %p>", v.TypeOf(), v.ref)
	}
}

// FormatNumber implements ECMAScript Number::toString for radix 10.
func FormatNumber(f float64) string {
	if f != f {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs < 1e-6 || abs >= 1e21 {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cleanExponentialFormat removes leading zeros from the exponent to match JS,
// e.g. "1e-07" -> "1e-7".
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != 'e' {
			continue
		}
		if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
			j := i + 2
			for j < len(s)-1 && s[j] == '0' {
				j++
			}
			return s[:i+2] + s[j:]
		}
		break
	}
	return s
}
