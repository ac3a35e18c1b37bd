package shape

import (
	"errors"
	"testing"

	"github.com/beetlebugorg/etakehr/internal/geom"
	"github.com/beetlebugorg/etakehr/internal/testutil"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadsRecords(t *testing.T) {
	archive := testutil.WriteArchive(t, DefaultLayer, testutil.LEST97WKT, []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(542400, 6589000, 10)}, Key: "100000001", Height: testutil.Height(12)},
		{Rings: [][][2]float64{testutil.Square(542500, 6589000, 10)}, Key: ""},
	})

	src, err := Open(archive, "/"+DefaultLayer)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, DefaultLayer, src.Layer())
	assert.Equal(t, testutil.LEST97WKT, src.CRS())

	var records []geom.Record
	for src.Next() {
		records = append(records, src.Record())
	}
	require.NoError(t, src.Err())
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, geom.KindPolygon, first.Kind)
	require.Len(t, first.Rings, 1)
	assert.Len(t, first.Rings[0], 5)
	assert.Equal(t, orb.Point{542400, 6589000}, first.Rings[0][0])
	assert.Equal(t, "100000001", first.Properties["ehr_gid"])
	assert.Equal(t, int64(12), first.Properties["korgus_m"])

	second := records[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "", second.Properties["ehr_gid"])
	_, ok := second.Properties.Get("korgus_m")
	assert.False(t, ok, "blank numeric should be null")
}

func TestOpenWithoutPrj(t *testing.T) {
	archive := testutil.WriteArchive(t, DefaultLayer, "", []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(0, 0, 1)}, Key: "1"},
	})

	src, err := Open(archive, DefaultLayer)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "", src.CRS())
}

func TestOpenMissingArchive(t *testing.T) {
	_, err := Open(t.TempDir()+"/nope.zip", DefaultLayer)
	assert.Error(t, err)
}

func TestOpenMissingLayer(t *testing.T) {
	archive := testutil.WriteArchive(t, "E_402_other.shp", testutil.LEST97WKT, []testutil.Footprint{
		{Rings: [][][2]float64{testutil.Square(0, 0, 1)}, Key: "1"},
	})

	_, err := Open(archive, DefaultLayer)
	assert.Error(t, err)
}

func TestReadErrorUnwraps(t *testing.T) {
	inner := errors.New("unexpected EOF")
	err := &ReadError{Layer: DefaultLayer, Index: 3, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "after record 3")
}
