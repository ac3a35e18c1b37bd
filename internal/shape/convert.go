package shape

import (
	"strconv"
	"strings"

	"github.com/beetlebugorg/etakehr/internal/geom"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// convertShape splits a shapefile record into rings and classifies it.
//
// Shapefile polygons keep outer rings clockwise and holes counter-clockwise.
// A record with more than one outer ring is a MultiPolygon.
func convertShape(s shp.Shape) (geom.Kind, []orb.Ring) {
	switch p := s.(type) {
	case *shp.Polygon:
		return classify(splitParts(p.Parts, p.Points))
	case *shp.PolygonZ:
		return classify(splitParts(p.Parts, p.Points))
	case *shp.PolygonM:
		return classify(splitParts(p.Parts, p.Points))
	case *shp.Null, nil:
		return geom.KindNull, nil
	default:
		return geom.KindOther, nil
	}
}

func splitParts(parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start > end {
			// Corrupt part table: keep an empty ring so the
			// failure surfaces when the ring is used.
			rings = append(rings, orb.Ring{})
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

func classify(rings []orb.Ring) (geom.Kind, []orb.Ring) {
	if len(rings) == 0 {
		return geom.KindNull, nil
	}
	outer := 0
	for _, r := range rings {
		if r.Orientation() == orb.CW {
			outer++
		}
	}
	if outer > 1 {
		return geom.KindMultiPolygon, rings
	}
	return geom.KindPolygon, rings
}

// parseAttribute types a raw DBF value by its column type.
func parseAttribute(f field, raw string) any {
	switch f.kind {
	case 'N', 'F':
		v := strings.Trim(raw, " \x00")
		if v == "" || strings.Trim(v, "*") == "" {
			return nil
		}
		if f.kind == 'N' && f.precision == 0 {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
		return nil
	case 'L':
		switch strings.Trim(raw, " \x00") {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		default:
			return nil
		}
	default:
		return strings.TrimRight(raw, " \x00")
	}
}
