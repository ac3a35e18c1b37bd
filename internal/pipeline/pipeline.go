// Package pipeline runs the two phases of a conversion: load the registry,
// then stream the footprint layer through the joiner into the output.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/beetlebugorg/etakehr/internal/discover"
	"github.com/beetlebugorg/etakehr/internal/emit"
	"github.com/beetlebugorg/etakehr/internal/join"
	"github.com/beetlebugorg/etakehr/internal/metrics"
	"github.com/beetlebugorg/etakehr/internal/registry"
	"github.com/beetlebugorg/etakehr/internal/reproject"
	"github.com/beetlebugorg/etakehr/internal/shape"
)

// TransformerFactory builds the reprojection for a source CRS. The
// returned func releases it.
type TransformerFactory func(sourceCRS string) (join.Transformer, func(), error)

// Options configures a run.
type Options struct {
	// Layer inside the archive. Default shape.DefaultLayer.
	Layer string

	// SourceCRS overrides the CRS declared by the layer.
	SourceCRS string

	Registry registry.Options
	Join     join.Options

	// Metrics, when set, receives the run counters.
	Metrics *metrics.Metrics

	// NewTransformer defaults to a PROJ reprojector to EPSG:4326.
	NewTransformer TransformerFactory

	Logger *slog.Logger
}

// Report summarises a run.
type Report struct {
	Registry registry.Stats
	Entries  int
	Join     join.Stats
	Outcome  join.Outcome
	Emitted  int
}

// Run converts the inputs and writes features to out.
//
// The returned error covers failures before streaming starts and a failed
// final flush. A stream that stops early is not an error: the report's
// Outcome carries the cause.
func Run(in discover.Sources, out io.Writer, opts Options) (Report, error) {
	var report Report
	if in.Registry == "" || in.Archive == "" {
		return report, discover.ErrMissingInput
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Layer == "" {
		opts.Layer = shape.DefaultLayer
	}
	if opts.NewTransformer == nil {
		opts.NewTransformer = projTransformer
	}

	// Phase 1: the whole index exists before the first footprint is read.
	ropts := opts.Registry
	if ropts.Logger == nil {
		ropts.Logger = logger
	}
	index, rstats, err := registry.Load(in.Registry, ropts)
	report.Registry = rstats
	if err != nil {
		return report, err
	}
	report.Entries = index.Len()
	if opts.Metrics != nil {
		opts.Metrics.ObserveRegistry(rstats)
	}

	// Phase 2.
	src, err := shape.Open(in.Archive, opts.Layer)
	if err != nil {
		return report, err
	}
	defer src.Close()

	crs := opts.SourceCRS
	if crs == "" {
		crs = src.CRS()
	}
	if crs == "" {
		return report, fmt.Errorf("%s: %w", src.Layer(), shape.ErrNoCRS)
	}
	tr, release, err := opts.NewTransformer(crs)
	if err != nil {
		return report, err
	}
	defer release()

	jopts := opts.Join
	if jopts.Logger == nil {
		jopts.Logger = logger
	}
	stream := join.New(index, tr, jopts).Stream(src)
	w := emit.NewWriter(out)

	logger.Info("iterating features", "archive", in.Archive, "layer", src.Layer())
	for f := range stream.All() {
		if err := w.Emit(f); err != nil {
			stream.Abort(err)
			break
		}
	}
	flushErr := w.Flush()

	report.Join = stream.Stats()
	report.Outcome = stream.Outcome()
	report.Emitted = w.Count()
	if opts.Metrics != nil {
		opts.Metrics.ObserveJoin(report.Join, report.Outcome, report.Emitted)
	}
	logger.Info("all done", "written", report.Emitted,
		"read", report.Join.Read, "skipped", report.Join.Discarded(), "state", report.Outcome.State.String())

	if flushErr != nil {
		return report, flushErr
	}
	return report, nil
}

func projTransformer(sourceCRS string) (join.Transformer, func(), error) {
	r, err := reproject.New(sourceCRS)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}
