package join

import "github.com/paulmach/orb"

// Feature is one output record: a footprint polygon in (lat, lon) order
// with the attributes of its registry entry.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is always a Polygon. Each point is [lat, lon].
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates orb.Polygon `json:"coordinates"`
}

// Properties carries the registry attributes and the optional height.
type Properties struct {
	Type   string `json:"type"`
	Addr   string `json:"addr"`
	Year   int    `json:"year"`
	Height *int   `json:"height,omitempty"`
}

func newFeature(rings []orb.Ring, props Properties) Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Polygon",
			Coordinates: orb.Polygon(rings),
		},
		Properties: props,
	}
}
