package geom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Bounds is a box in decimal degrees, west/south/east/north.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Intersects reports whether b and o share at least one point. Boxes that
// only touch along an edge or corner intersect.
func (b Bounds) Intersects(o Bounds) bool {
	return o.MinLon <= b.MaxLon && o.MaxLon >= b.MinLon &&
		o.MinLat <= b.MaxLat && o.MaxLat >= b.MinLat
}

// String formats the bounds as "minLon,minLat,maxLon,maxLat".
func (b Bounds) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// UnmarshalText parses "minLon,minLat,maxLon,maxLat".
func (b *Bounds) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ",")
	if len(parts) != 4 {
		return fmt.Errorf("bounds %q: want minLon,minLat,maxLon,maxLat", text)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("bounds %q: %w", text, err)
		}
		v[i] = f
	}
	out := Bounds{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if out.MinLon > out.MaxLon || out.MinLat > out.MaxLat {
		return fmt.Errorf("bounds %q: minimum exceeds maximum", text)
	}
	*b = out
	return nil
}

// PolygonBounds calculates the bounding box of rings whose points are
// stored as (lat, lon).
func PolygonBounds(rings []orb.Ring) Bounds {
	var bound orb.Bound
	first := true
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		if first {
			bound = ring.Bound()
			first = false
			continue
		}
		bound = bound.Union(ring.Bound())
	}
	if first {
		return Bounds{}
	}

	// X holds latitude, Y holds longitude.
	return Bounds{
		MinLon: bound.Min[1],
		MinLat: bound.Min[0],
		MaxLon: bound.Max[1],
		MaxLat: bound.Max[0],
	}
}
