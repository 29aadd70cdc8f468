// Package index provides the labeled indices that tensors are built on.
//
// An Index is an immutable label with a unique identity, a dimension and a
// prime level. Two indices are equal when they share the same identity and
// prime level, regardless of their names.
package index

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Type classifies an Index. All is only meaningful as a filter.
type Type int

// Index types.
const (
	Link Type = iota
	Site
	ReIm
	All
)

// String returns a human-readable type name.
func (t Type) String() string {
	switch t {
	case Link:
		return "Link"
	case Site:
		return "Site"
	case ReIm:
		return "ReIm"
	case All:
		return "All"
	default:
		return "Unknown"
	}
}

// Matches reports whether an index of type t is selected by the filter f.
func (t Type) Matches(f Type) bool {
	return f == All || f == t
}

// reImID is the fixed identity of the real/imaginary index shared by every
// complex tensor.
var reImID = uuid.MustParse("6a1f4e0c-2b7d-4f43-9c55-0e3a5d9b7c21")

// Index is a labeled tensor dimension. The zero value is the null Index.
type Index struct {
	id   uuid.UUID
	name string
	m    int
	typ  Type
	plev int
}

// New creates an Index with a fresh identity. It panics if m < 1.
func New(name string, m int, typ Type) Index {
	if m < 1 {
		panic(fmt.Sprintf("index: dimension must be positive, got %d", m))
	}
	return Index{id: uuid.New(), name: name, m: m, typ: typ}
}

// ReImIndex returns the shared real/imaginary index of dimension 2.
func ReImIndex() Index {
	return Index{id: reImID, name: "ReIm", m: 2, typ: ReIm}
}

// ReImP returns ReImIndex primed once.
func ReImP() Index { return ReImIndex().Primed(1) }

// ReImPP returns ReImIndex primed twice.
func ReImPP() Index { return ReImIndex().Primed(2) }

// ID returns the identity shared by all prime levels of the index.
func (i Index) ID() uuid.UUID { return i.id }

// RawName returns the name without prime markers.
func (i Index) RawName() string { return i.name }

// Name returns the name followed by one ' per prime level.
func (i Index) Name() string {
	if i.plev <= 0 {
		return i.name
	}
	return i.name + strings.Repeat("'", i.plev)
}

// M returns the dimension.
func (i Index) M() int { return i.m }

// Type returns the index type.
func (i Index) Type() Type { return i.typ }

// PrimeLevel returns the prime level.
func (i Index) PrimeLevel() int { return i.plev }

// IsNull reports whether i is the null Index.
func (i Index) IsNull() bool { return i.id == uuid.Nil }

// IsTrivial reports whether i has dimension 1.
func (i Index) IsTrivial() bool { return i.m == 1 }

// Equal reports whether i and o have the same identity and prime level.
func (i Index) Equal(o Index) bool {
	return i.id == o.id && i.plev == o.plev
}

// NoPrimeEqual reports whether i and o have the same identity.
func (i Index) NoPrimeEqual(o Index) bool {
	return i.id == o.id
}

// Primed returns i with its prime level raised by inc.
func (i Index) Primed(inc int) Index {
	i.plev += inc
	return i
}

// NoPrime returns i at prime level 0.
func (i Index) NoPrime() Index {
	i.plev = 0
	return i
}

// WithPrimeLevel returns i at prime level p.
func (i Index) WithPrimeLevel(p int) Index {
	i.plev = p
	return i
}

// Val returns the IndexVal selecting value v (0-based).
func (i Index) Val(v int) IndexVal {
	return IndexVal{Index: i, Val: v}
}

// String implements fmt.Stringer.
func (i Index) String() string {
	if i.IsNull() {
		return "(null)"
	}
	return fmt.Sprintf("(%s,%d,%s)", i.Name(), i.m, i.typ)
}

// IndexVal selects one value of an Index.
type IndexVal struct {
	Index Index
	Val   int
}

// Valid reports whether Val lies in [0, M).
func (iv IndexVal) Valid() bool {
	return !iv.Index.IsNull() && iv.Val >= 0 && iv.Val < iv.Index.m
}

// String implements fmt.Stringer.
func (iv IndexVal) String() string {
	return fmt.Sprintf("%s=%d", iv.Index.Name(), iv.Val)
}
