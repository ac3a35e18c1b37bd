package geom

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// minSide keeps degenerate boxes (a single point, a vertical line) valid
// as R-tree rectangles, which need positive side lengths.
const minSide = 1e-9

// Extent answers "does this footprint touch any region of interest" using an
// R-tree over the configured regions.
//
// An empty Extent accepts everything.
type Extent struct {
	regions []region
	rtree   *rtreego.Rtree
}

// region is an indexed bounding box.
type region struct {
	Box Bounds
	ID  int
}

// Bounds method for rtreego.Spatial interface.
func (r region) Bounds() rtreego.Rect {
	return toRect(r.Box)
}

// NewExtent indexes the given regions.
func NewExtent(regions []Bounds) *Extent {
	ext := &Extent{}
	if len(regions) == 0 {
		return ext
	}

	// 2D, min=25 children, max=50 children
	ext.rtree = rtreego.NewTree(2, 25, 50)
	for i, b := range regions {
		r := region{Box: b, ID: i}
		ext.regions = append(ext.regions, r)
		ext.rtree.Insert(r)
	}
	return ext
}

// Empty reports whether no regions are configured.
func (e *Extent) Empty() bool {
	return e == nil || len(e.regions) == 0
}

// Len returns the number of indexed regions.
func (e *Extent) Len() int {
	if e == nil {
		return 0
	}
	return len(e.regions)
}

// Intersects reports whether b touches at least one region. An empty extent
// always reports true.
//
// R-tree hits are candidates only: padded degenerate boxes can overlap in
// the tree without sharing a point, so each is checked against its exact
// bounds.
func (e *Extent) Intersects(b Bounds) bool {
	if e.Empty() {
		return true
	}
	for _, s := range e.rtree.SearchIntersect(toRect(b)) {
		if s.(region).Box.Intersects(b) {
			return true
		}
	}
	return false
}

func toRect(b Bounds) rtreego.Rect {
	point := rtreego.Point{b.MinLon, b.MinLat}
	lengths := []float64{
		math.Max(b.MaxLon-b.MinLon, minSide),
		math.Max(b.MaxLat-b.MinLat, minSide),
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}
