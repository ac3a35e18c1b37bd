// Package reproject converts footprint rings from the layer's native
// coordinate reference system to WGS-84 latitude/longitude using PROJ.
package reproject

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/pebbe/proj/v5"
)

// TargetCRS is the fixed output system. In its authority axis order
// latitude comes first.
const TargetCRS = "EPSG:4326"

var (
	// ErrEmptyRing is returned for a ring without points.
	ErrEmptyRing = errors.New("reproject: empty ring")
	// ErrNoSourceCRS is returned when no source definition is given.
	ErrNoSourceCRS = errors.New("reproject: no source CRS")
)

// PointError reports a point PROJ could not transform.
type PointError struct {
	Index int
	X, Y  float64
	Err   error
}

func (e *PointError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reproject: point %d (%f, %f): %v", e.Index, e.X, e.Y, e.Err)
	}
	return fmt.Sprintf("reproject: point %d (%f, %f): result out of range", e.Index, e.X, e.Y)
}

func (e *PointError) Unwrap() error { return e.Err }

// Reprojector transforms rings from a source CRS to TargetCRS.
//
// The source definition may be WKT (as found in a shapefile .prj), a PROJ
// string or an authority code. Input points are read as (x, y) = (easting,
// northing); definitions whose authority order is northing first must be
// given as a PROJ string or WKT without AXIS clauses.
type Reprojector struct {
	ctx    *proj.Context
	pj     *proj.PJ
}

// New builds the transformation once. Close releases it.
func New(sourceCRS string) (*Reprojector, error) {
	if sourceCRS == "" {
		return nil, ErrNoSourceCRS
	}

	ctx := proj.NewContext()
	pj, err := ctx.CreateCRS2CRS(sourceCRS, TargetCRS)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("reproject: create transform from %q: %w", abbreviate(sourceCRS), err)
	}

	return &Reprojector{ctx: ctx, pj: pj}, nil
}

// Transform converts a ring of (x, y) points into a ring of (lat, lon)
// points. Both axes of each point are transformed together.
func (r *Reprojector) Transform(ring orb.Ring) (orb.Ring, error) {
	if len(ring) == 0 {
		return nil, ErrEmptyRing
	}

	coords := make([]proj.Coord, len(ring))
	for i, p := range ring {
		if !finite(p[0]) || !finite(p[1]) {
			return nil, &PointError{Index: i, X: p[0], Y: p[1]}
		}
		coords[i] = proj.Coord{p[0], p[1], 0, 0}
	}

	if err := r.pj.TransSlice(proj.Fwd, coords); err != nil {
		return nil, fmt.Errorf("reproject: %w", err)
	}

	out := make(orb.Ring, len(coords))
	for i, c := range coords {
		lat, lon := c[0], c[1]
		if !finite(lat) || !finite(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
			return nil, &PointError{Index: i, X: ring[i][0], Y: ring[i][1]}
		}
		out[i] = orb.Point{lat, lon}
	}
	return out, nil
}

// Close releases the PROJ handles.
func (r *Reprojector) Close() {
	if r.pj != nil {
		r.pj.Close()
		r.pj = nil
	}
	if r.ctx != nil {
		r.ctx.Close()
		r.ctx = nil
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// abbreviate keeps WKT definitions readable in error messages.
func abbreviate(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
