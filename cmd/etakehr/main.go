// Command etakehr joins the EHR building registry with ETAK footprints and
// writes one GeoJSON feature per line to stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/beetlebugorg/etakehr/internal/config"
	"github.com/beetlebugorg/etakehr/internal/discover"
	"github.com/beetlebugorg/etakehr/internal/logging"
	"github.com/beetlebugorg/etakehr/internal/metrics"
	"github.com/beetlebugorg/etakehr/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("etakehr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.New(stderr, cfg.LogLevel)

	resolver := discover.NewResolver(cfg.DataDir, discover.Prompt{In: stdin, Out: stderr}, logger)
	sources, err := resolver.Resolve(discover.Sources{Registry: cfg.RegistryFile, Archive: cfg.ArchiveFile})
	if err != nil {
		logger.Error("cannot start", "err", err)
		return 1
	}

	m := metrics.New()
	report, err := pipeline.Run(sources, stdout, pipeline.Options{
		Layer:     cfg.LayerOrDefault(),
		SourceCRS: cfg.SourceCRS,
		Registry:  cfg.RegistryOptions(logger),
		Join:      cfg.JoinOptions(logger),
		Metrics:   m,
		Logger:    logger,
	})
	if cfg.MetricsTextfile != "" {
		if werr := m.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			logger.Warn("failed to write metrics", "path", cfg.MetricsTextfile, "err", werr)
		}
	}
	if err != nil {
		logger.Error("run failed", "err", err)
		return 1
	}

	// An aborted stream has already been logged; features written before
	// the failure stay valid output.
	if report.Outcome.Aborted() {
		logger.Debug("stream aborted", "err", report.Outcome.Err)
	}
	return 0
}
