// Package join matches footprint records against the registry index and
// turns the matches into output features.
//
// A Stream is fail-fast: the first record that cannot be reprojected or
// assembled ends it, and nothing after that record is produced. Records
// that merely do not qualify (wrong geometry kind, missing or unknown
// foreign key) are skipped and counted.
package join

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/beetlebugorg/etakehr/internal/geom"
	"github.com/beetlebugorg/etakehr/internal/registry"
	"github.com/paulmach/orb"
)

// Transformer reprojects one ring into (lat, lon) points.
type Transformer interface {
	Transform(ring orb.Ring) (orb.Ring, error)
}

// Lookup resolves registry codes.
type Lookup interface {
	Lookup(code int64) (registry.Entry, bool)
}

// Source yields footprint records one at a time.
type Source interface {
	Next() bool
	Record() geom.Record
	Err() error
}

// Options configures a Joiner.
type Options struct {
	// ForeignKeyField holds the registry code. Default "ehr_gid".
	ForeignKeyField string

	// HeightField holds the building height in metres. Default "korgus_m".
	HeightField string

	// Extent, when non-empty, drops features whose bounds touch no region.
	Extent *geom.Extent

	// Logger receives the abort notice. Nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns the ETAK attribute names.
func DefaultOptions() Options {
	return Options{
		ForeignKeyField: "ehr_gid",
		HeightField:     "korgus_m",
	}
}

// Joiner holds what every stream shares: the index and the transform.
type Joiner struct {
	index  Lookup
	tr     Transformer
	opts   Options
	logger *slog.Logger
}

// New creates a joiner. The index must be complete before any stream runs.
func New(index Lookup, tr Transformer, opts Options) *Joiner {
	def := DefaultOptions()
	if opts.ForeignKeyField == "" {
		opts.ForeignKeyField = def.ForeignKeyField
	}
	if opts.HeightField == "" {
		opts.HeightField = def.HeightField
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Joiner{index: index, tr: tr, opts: opts, logger: logger}
}

// Stream prepares a single pass over src.
func (j *Joiner) Stream(src Source) *Stream {
	return &Stream{j: j, src: src}
}

// Stats counts what happened to the records of a stream.
type Stats struct {
	Read          int
	Yielded       int
	WrongKind     int
	MissingKey    int
	MalformedKey  int
	UnmatchedKey  int
	OutsideExtent int
}

// Discarded returns the number of records skipped by the filters.
func (s Stats) Discarded() int {
	return s.WrongKind + s.MissingKey + s.MalformedKey + s.UnmatchedKey + s.OutsideExtent
}

// process turns one record into a feature. ok is false for records that
// are skipped; err is non-nil only for failures that end the stream.
func (j *Joiner) process(rec geom.Record, stats *Stats) (f Feature, ok bool, err error) {
	if rec.Kind != geom.KindPolygon {
		stats.WrongKind++
		return Feature{}, false, nil
	}

	raw, present := rec.Properties.Get(j.opts.ForeignKeyField)
	if !present {
		stats.MissingKey++
		return Feature{}, false, nil
	}
	var key string
	switch v := raw.(type) {
	case string:
		key = v
	case int64:
		key = strconv.FormatInt(v, 10)
	case int:
		key = strconv.Itoa(v)
	default:
		stats.MalformedKey++
		return Feature{}, false, nil
	}
	if key == "" {
		stats.MissingKey++
		return Feature{}, false, nil
	}
	if !allDigits(key) {
		stats.MalformedKey++
		return Feature{}, false, nil
	}

	code, perr := strconv.ParseInt(key, 10, 64)
	if perr != nil {
		// Too large for any registry code.
		stats.UnmatchedKey++
		return Feature{}, false, nil
	}
	entry, found := j.index.Lookup(code)
	if !found {
		stats.UnmatchedKey++
		return Feature{}, false, nil
	}

	rings := make([]orb.Ring, 0, len(rec.Rings))
	for _, ring := range rec.Rings {
		out, terr := j.tr.Transform(ring)
		if terr != nil {
			return Feature{}, false, &RecordError{Index: rec.Index, Stage: StageReproject, Err: terr}
		}
		rings = append(rings, out)
	}

	if !j.opts.Extent.Empty() && !j.opts.Extent.Intersects(geom.PolygonBounds(rings)) {
		stats.OutsideExtent++
		return Feature{}, false, nil
	}

	props := Properties{
		Type: entry.Name,
		Addr: entry.Address,
		Year: entry.Year,
	}
	if v, present := rec.Properties.Get(j.opts.HeightField); present {
		h, herr := height(v)
		if herr != nil {
			return Feature{}, false, &RecordError{Index: rec.Index, Stage: StageAssemble, Err: herr}
		}
		props.Height = h
	}

	return newFeature(rings, props), true, nil
}

// height converts a truthy attribute value to whole metres. Zero, empty
// and false values mean "no height" and yield nil.
func height(v any) (*int, error) {
	var n int
	switch t := v.(type) {
	case bool:
		if !t {
			return nil, nil
		}
		n = 1
	case int64:
		if t == 0 {
			return nil, nil
		}
		n = int(t)
	case int:
		if t == 0 {
			return nil, nil
		}
		n = t
	case float64:
		if t == 0 {
			return nil, nil
		}
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, &HeightError{Value: v}
		}
		n = int(t)
	case string:
		if t == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, &HeightError{Value: v}
		}
		n = parsed
	default:
		return nil, &HeightError{Value: v}
	}
	return &n, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
