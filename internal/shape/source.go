// Package shape reads building footprints from a shapefile layer stored in
// a ZIP archive, the way ETAK distributes them.
package shape

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beetlebugorg/etakehr/internal/geom"
	shp "github.com/jonas-p/go-shp"
)

// DefaultLayer is the building footprint layer inside the ETAK archive.
const DefaultLayer = "E_401_hoone_ka.shp"

// Source iterates the records of one layer. It is not restartable.
//
// Usage:
//
//	src, err := shape.Open(archive, shape.DefaultLayer)
//	if err != nil { ... }
//	defer src.Close()
//	for src.Next() {
//	    rec := src.Record()
//	}
//	if err := src.Err(); err != nil { ... }
type Source struct {
	archive string
	layer   string
	crs     string
	zr      *shp.ZipReader
	fields  []field
	count   int
	current geom.Record
}

// field is a decoded DBF column descriptor.
type field struct {
	name      string
	kind      byte
	precision uint8
}

// Open opens layer inside the archive at archivePath. The layer name may
// carry a leading slash; ZIP entries never do.
func Open(archivePath, layer string) (*Source, error) {
	layer = strings.TrimPrefix(layer, "/")

	crs, err := readCRS(archivePath, layer)
	if err != nil {
		return nil, err
	}

	zr, err := shp.OpenShapeFromZip(archivePath, layer)
	if err != nil {
		return nil, fmt.Errorf("shape: open %s in %s: %w", layer, archivePath, err)
	}

	src := &Source{
		archive: archivePath,
		layer:   layer,
		crs:     crs,
		zr:      zr,
	}
	for _, f := range zr.Fields() {
		src.fields = append(src.fields, field{
			name:      f.String(),
			kind:      f.Fieldtype,
			precision: f.Precision,
		})
	}
	return src, nil
}

// CRS returns the layer's native coordinate reference system as WKT, or
// "" when the archive has no .prj for the layer.
func (s *Source) CRS() string {
	return s.crs
}

// Layer returns the layer path inside the archive.
func (s *Source) Layer() string {
	return s.layer
}

// Next advances to the next record.
func (s *Source) Next() bool {
	if !s.zr.Next() {
		return false
	}

	_, shape := s.zr.Shape()
	kind, rings := convertShape(shape)

	props := make(geom.Properties, len(s.fields))
	for i, f := range s.fields {
		props[f.name] = parseAttribute(f, s.zr.Attribute(i))
	}

	s.current = geom.Record{
		Index:      s.count,
		Kind:       kind,
		Rings:      rings,
		Properties: props,
	}
	s.count++
	return true
}

// Record returns the record read by the last call to Next.
func (s *Source) Record() geom.Record {
	return s.current
}

// Err returns the first read error, if any.
func (s *Source) Err() error {
	if err := s.zr.Err(); err != nil {
		return &ReadError{Layer: s.layer, Index: s.count - 1, Err: err}
	}
	return nil
}

// Close releases the archive.
func (s *Source) Close() error {
	return s.zr.Close()
}

// readCRS returns the contents of the layer's .prj companion.
func readCRS(archivePath, layer string) (string, error) {
	z, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("shape: open archive %s: %w", archivePath, err)
	}
	defer z.Close()

	want := strings.TrimSuffix(layer, path.Ext(layer)) + ".prj"
	for _, f := range z.File {
		if !strings.EqualFold(f.Name, want) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("shape: open %s: %w", f.Name, err)
		}
		defer rc.Close()

		b, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("shape: read %s: %w", f.Name, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return "", nil
}
