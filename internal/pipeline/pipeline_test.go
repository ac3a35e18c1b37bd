package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/beetlebugorg/etakehr/internal/discover"
	"github.com/beetlebugorg/etakehr/internal/join"
	"github.com/beetlebugorg/etakehr/internal/metrics"
	"github.com/beetlebugorg/etakehr/internal/shape"
	"github.com/beetlebugorg/etakehr/internal/testutil"
	"github.com/paulmach/orb"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swap stands in for PROJ: (x, y) becomes (y, x). Rings starting at
// failX fail.
type swap struct{ failX float64 }

func (s swap) Transform(ring orb.Ring) (orb.Ring, error) {
	if ring[0][0] == s.failX {
		return nil, errors.New("no convergence")
	}
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[i] = orb.Point{p[1], p[0]}
	}
	return out, nil
}

func swapFactory(failX float64, gotCRS *string) TransformerFactory {
	return func(crs string) (join.Transformer, func(), error) {
		if gotCRS != nil {
			*gotCRS = crs
		}
		return swap{failX: failX}, func() {}, nil
	}
}

type outFeature struct {
	Geometry struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

func decodeLines(t *testing.T, out string) []outFeature {
	t.Helper()
	var features []outFeature
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		var f outFeature
		require.NoError(t, json.Unmarshal([]byte(line), &f), line)
		features = append(features, f)
	}
	return features
}

func TestRunMissingInput(t *testing.T) {
	tests := []discover.Sources{
		{},
		{Registry: "ehr.csv"},
		{Archive: "ETAK.zip"},
	}
	for _, in := range tests {
		_, err := Run(in, &bytes.Buffer{}, Options{})
		assert.ErrorIs(t, err, discover.ErrMissingInput)
	}
}

func TestRunJoinsRegistryAndFootprints(t *testing.T) {
	reg := testutil.WriteRegistry(t,
		"100000001;1995;Maja;elamu;Tee 1",
		"100000002;1960-05-01;;kool;Kooli 2",
		"200000003;1970;Ait;;Tee 3",
	)
	archive := testutil.WriteArchive(t, shape.DefaultLayer, testutil.LEST97WKT, []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(542400, 6589000, 10)}, Key: "100000001", Height: testutil.Height(12)},
		{Rings: [][][2]float64{testutil.Square(542500, 6589000, 10)}, Key: ""},
		{Rings: [][][2]float64{testutil.Square(542600, 6589000, 10)}, Key: "999"},
		{Rings: [][][2]float64{testutil.Square(542700, 6589000, 10)}, Key: "100000002"},
	})

	var crs string
	var out bytes.Buffer
	m := metrics.New()
	report, err := Run(discover.Sources{Registry: reg, Archive: archive}, &out, Options{
		NewTransformer: swapFactory(-1, &crs),
		Metrics:        m,
	})
	require.NoError(t, err)

	assert.Equal(t, testutil.LEST97WKT, crs)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, 3, report.Registry.Rows)
	assert.Equal(t, join.StateCompleted, report.Outcome.State)
	assert.Equal(t, 4, report.Join.Read)
	assert.Equal(t, 1, report.Join.MissingKey)
	assert.Equal(t, 1, report.Join.UnmatchedKey)
	assert.Equal(t, 2, report.Emitted)

	features := decodeLines(t, out.String())
	require.Len(t, features, 2)

	first := features[0]
	assert.Equal(t, "Polygon", first.Geometry.Type)
	require.Len(t, first.Geometry.Coordinates, 1)
	assert.Equal(t, [2]float64{6589000, 542400}, first.Geometry.Coordinates[0][0])
	assert.Equal(t, map[string]any{
		"type": "Maja", "addr": "Tee 1", "year": float64(1995), "height": float64(12),
	}, first.Properties)

	second := features[1]
	assert.Equal(t, map[string]any{
		"type": "kool", "addr": "Kooli 2", "year": float64(1960),
	}, second.Properties)

	assert.Equal(t, float64(2), promtest.ToFloat64(m.Emitted))
	assert.Equal(t, float64(0), promtest.ToFloat64(m.Aborted))
}

func TestRunAbortKeepsEarlierFeatures(t *testing.T) {
	reg := testutil.WriteRegistry(t,
		"100000001;1995;Maja;;Tee 1",
		"100000002;1960;Kool;;Kooli 2",
	)
	archive := testutil.WriteArchive(t, shape.DefaultLayer, testutil.LEST97WKT, []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(542400, 6589000, 10)}, Key: "100000001"},
		{Rings: [][][2]float64{testutil.Square(542500, 6589000, 10)}, Key: "100000002"},
		{Rings: [][][2]float64{testutil.Square(542600, 6589000, 10)}, Key: "100000001"},
	})

	var out bytes.Buffer
	m := metrics.New()
	report, err := Run(discover.Sources{Registry: reg, Archive: archive}, &out, Options{
		NewTransformer: swapFactory(542500, nil),
		Metrics:        m,
	})
	require.NoError(t, err, "an aborted stream is reported, not returned")

	require.True(t, report.Outcome.Aborted())
	var recErr *join.RecordError
	require.ErrorAs(t, report.Outcome.Err, &recErr)
	assert.Equal(t, 1, recErr.Index)
	assert.Equal(t, join.StageReproject, recErr.Stage)
	assert.Equal(t, 1, report.Emitted)
	assert.Len(t, decodeLines(t, out.String()), 1)
	assert.Equal(t, float64(1), promtest.ToFloat64(m.Aborted))
}

func TestRunRequiresCRS(t *testing.T) {
	reg := testutil.WriteRegistry(t, "100000001;1995;Maja;;Tee 1")
	archive := testutil.WriteArchive(t, shape.DefaultLayer, "", []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(542400, 6589000, 10)}, Key: "100000001"},
	})
	in := discover.Sources{Registry: reg, Archive: archive}

	_, err := Run(in, &bytes.Buffer{}, Options{NewTransformer: swapFactory(-1, nil)})
	assert.ErrorIs(t, err, shape.ErrNoCRS)

	var crs string
	var out bytes.Buffer
	report, err := Run(in, &out, Options{
		SourceCRS:      "EPSG:3301",
		NewTransformer: swapFactory(-1, &crs),
	})
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3301", crs)
	assert.Equal(t, 1, report.Emitted)
}

func TestRunSetupErrors(t *testing.T) {
	reg := testutil.WriteRegistry(t, "100000001;1995;Maja;;Tee 1")
	archive := testutil.WriteArchive(t, shape.DefaultLayer, testutil.LEST97WKT, nil)

	_, err := Run(discover.Sources{Registry: reg + ".missing", Archive: archive}, &bytes.Buffer{},
		Options{NewTransformer: swapFactory(-1, nil)})
	assert.Error(t, err)

	_, err = Run(discover.Sources{Registry: reg, Archive: archive}, &bytes.Buffer{},
		Options{Layer: "E_999_puudub.shp", NewTransformer: swapFactory(-1, nil)})
	assert.Error(t, err)

	factoryErr := errors.New("bad crs")
	_, err = Run(discover.Sources{Registry: reg, Archive: archive}, &bytes.Buffer{},
		Options{NewTransformer: func(string) (join.Transformer, func(), error) { return nil, nil, factoryErr }})
	assert.ErrorIs(t, err, factoryErr)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRunReturnsFlushError(t *testing.T) {
	reg := testutil.WriteRegistry(t, "100000001;1995;Maja;;Tee 1")
	archive := testutil.WriteArchive(t, shape.DefaultLayer, testutil.LEST97WKT, []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(542400, 6589000, 10)}, Key: "100000001"},
	})

	_, err := Run(discover.Sources{Registry: reg, Archive: archive}, failingWriter{},
		Options{NewTransformer: swapFactory(-1, nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunWithPROJ(t *testing.T) {
	reg := testutil.WriteRegistry(t, "100000001;1995;Maja;;Tee 1")
	archive := testutil.WriteArchive(t, shape.DefaultLayer, testutil.LEST97WKT, []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(542400, 6589000, 10)}, Key: "100000001"},
	})

	var out bytes.Buffer
	report, err := Run(discover.Sources{Registry: reg, Archive: archive}, &out, Options{})
	require.NoError(t, err)
	require.Equal(t, join.StateCompleted, report.Outcome.State)

	features := decodeLines(t, out.String())
	require.Len(t, features, 1)
	p := features[0].Geometry.Coordinates[0][0]
	assert.InDelta(t, 59.437, p[0], 0.01, "latitude first")
	assert.InDelta(t, 24.745, p[1], 0.01)
}
