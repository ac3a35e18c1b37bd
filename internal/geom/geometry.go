// Package geom holds the geometry records read from the footprint layer and
// the geographic bounds helpers used to filter them.
package geom

import "github.com/paulmach/orb"

// Kind is the geometry type of a source record as reported by the reader.
type Kind int

const (
	// KindNull is a record without geometry.
	KindNull Kind = iota
	// KindPolygon is a polygon with one outer ring and zero or more holes.
	KindPolygon
	// KindMultiPolygon is a record with more than one outer ring.
	KindMultiPolygon
	// KindOther covers points, lines and anything else the layer may carry.
	KindOther
)

// String returns the GeoJSON name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindMultiPolygon:
		return "MultiPolygon"
	case KindOther:
		return "Other"
	default:
		return "Null"
	}
}

// Record is one step of the footprint source: a geometry with its rings in
// the source CRS and the attribute row that came with it.
//
// Records are transient. The reader hands out a fresh one per step.
type Record struct {
	// Index is the zero-based position of the record in the layer.
	Index int
	Kind  Kind
	// Rings are ordered (x, y) point sequences in the source CRS.
	Rings      []orb.Ring
	Properties Properties
}

// Properties is the attribute bag of a record.
//
// Values are typed the way the attribute table declares them: string for
// character fields, int64 for integral numeric fields, float64 for numeric
// fields with decimals, bool for logical fields and nil for nulls.
type Properties map[string]any

// Get returns the value stored under key. ok is false when the key is
// absent or holds a null.
func (p Properties) Get(key string) (v any, ok bool) {
	v, ok = p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
