package value

// Managed is implemented by every heap cell a Value can reference. The
// collector calls MarkObjects once per cycle for each reachable cell; the cell
// must hand every heap reference it holds to m.
type Managed interface {
	MarkObjects(m Marker)
}

// Marker is the mark-stack push interface used from MarkObjects.
type Marker interface {
	Mark(c Managed)
}

// MarkValue marks v's referenced cell, if any.
func MarkValue(m Marker, v Value) {
	if v.bits == immManaged && v.ref != nil {
		m.Mark(v.ref)
	}
}

// MarkValues marks every managed entry of vs.
func MarkValues(m Marker, vs []Value) {
	for i := range vs {
		if vs[i].bits == immManaged && vs[i].ref != nil {
			m.Mark(vs[i].ref)
		}
	}
}

// Optional interfaces a Managed cell may implement to take part in the
// primitive coercions above.

// Typer reports the ECMAScript typeof of a cell.
type Typer interface {
	TypeOf() string
}

// NumberConverter converts a primitive-like cell (a string) to a number.
type NumberConverter interface {
	ToNumber() float64
}

// Truthy reports the ToBoolean result of a cell.
type Truthy interface {
	Truthy() bool
}

// Equaler compares a cell by content with another cell. Cells without it
// compare by identity.
type Equaler interface {
	EqualsManaged(other Managed) bool
}
