// Package testutil builds ETAK-style footprint archives and EHR registry
// files for tests.
package testutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
)

// LEST97WKT is the .prj text ETAK ships for EPSG:3301.
const LEST97WKT = `PROJCS["Estonian_Coordinate_System_of_1997",GEOGCS["GCS_EST97",` +
	`DATUM["D_Estonia_1997",SPHEROID["GRS_1980",6378137.0,298.257222101]],` +
	`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],` +
	`PROJECTION["Lambert_Conformal_Conic"],PARAMETER["False_Easting",500000.0],` +
	`PARAMETER["False_Northing",6375000.0],PARAMETER["Central_Meridian",24.0],` +
	`PARAMETER["Standard_Parallel_1",58.0],PARAMETER["Standard_Parallel_2",59.33333333333334],` +
	`PARAMETER["Latitude_Of_Origin",57.51755393055556],UNIT["Meter",1.0]]`

// Footprint is one polygon record with its attribute row.
type Footprint struct {
	// Rings are (x, y) point lists. Outer rings clockwise, holes counter-clockwise.
	Rings [][][2]float64
	// Key is written to the ehr_gid column.
	Key string
	// Height is written to korgus_m when non-nil.
	Height *int
}

// Square returns a closed clockwise ring of side size with its south-west
// corner at (x, y).
func Square(x, y, size float64) [][2]float64 {
	return [][2]float64{
		{x, y},
		{x, y + size},
		{x + size, y + size},
		{x + size, y},
		{x, y},
	}
}

// Height returns a pointer to h.
func Height(h int) *int { return &h }

// WriteArchive writes footprints as a polygon shapefile layer, zips it
// with a .prj holding prj (omitted when empty) and returns the archive
// path.
func WriteArchive(t *testing.T, layer, prj string, footprints []Footprint) string {
	t.Helper()

	dir := t.TempDir()
	base := strings.TrimSuffix(layer, filepath.Ext(layer))
	shpPath := filepath.Join(dir, base+".shp")

	w, err := shp.Create(shpPath, shp.POLYGON)
	if err != nil {
		t.Fatalf("create shapefile: %v", err)
	}
	w.SetFields([]shp.Field{
		shp.StringField("ehr_gid", 20),
		shp.NumberField("korgus_m", 6),
	})
	for _, fp := range footprints {
		n := w.Write(polygon(fp.Rings))
		w.WriteAttribute(int(n), 0, fp.Key)
		if fp.Height != nil {
			w.WriteAttribute(int(n), 1, *fp.Height)
		} else {
			w.WriteAttribute(int(n), 1, "")
		}
	}
	w.Close()

	files := map[string]string{}
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		files[base+ext] = filepath.Join(dir, base+ext)
	}
	if prj != "" {
		prjPath := filepath.Join(dir, base+".prj")
		if err := os.WriteFile(prjPath, []byte(prj), 0o644); err != nil {
			t.Fatalf("write prj: %v", err)
		}
		files[base+".prj"] = prjPath
	}

	archive := filepath.Join(t.TempDir(), "ETAK_test.zip")
	out, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, src := range files {
		entry, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip %s: %v", name, err)
		}
		in, err := os.Open(src)
		if err != nil {
			t.Fatalf("open %s: %v", src, err)
		}
		_, err = io.Copy(entry, in)
		in.Close()
		if err != nil {
			t.Fatalf("copy %s: %v", src, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return archive
}

func polygon(rings [][][2]float64) *shp.Polygon {
	var parts []int32
	var points []shp.Point
	for _, ring := range rings {
		parts = append(parts, int32(len(points)))
		for _, p := range ring {
			points = append(points, shp.Point{X: p[0], Y: p[1]})
		}
	}
	return &shp.Polygon{
		Box:       shp.BBoxFromPoints(points),
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
}

// RegistryHeader is the header row of the EHR export.
const RegistryHeader = "ehr_kood;esmane_kasutus;nimetus;ehitise_tyyp;taisaadress\n"

// WriteRegistry writes an EHR CSV with the given data rows and returns its
// path.
func WriteRegistry(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ehr_test.csv")
	body := RegistryHeader + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}
