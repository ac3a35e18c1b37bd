// Package config loads run settings from ETAKEHR_* environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"

	"github.com/beetlebugorg/etakehr/internal/geom"
	"github.com/beetlebugorg/etakehr/internal/join"
	"github.com/beetlebugorg/etakehr/internal/registry"
	"github.com/beetlebugorg/etakehr/internal/shape"
)

// Config controls a run.
type Config struct {
	DataDir      string `env:"ETAKEHR_DATA_DIR"      envDefault:"data"`
	RegistryFile string `env:"ETAKEHR_REGISTRY_FILE"`
	ArchiveFile  string `env:"ETAKEHR_ARCHIVE_FILE"`
	Layer        string `env:"ETAKEHR_LAYER"         envDefault:"E_401_hoone_ka.shp"`

	RegistryDelimiter string `env:"ETAKEHR_REGISTRY_DELIMITER" envDefault:";"`
	RegistryEncoding  string `env:"ETAKEHR_REGISTRY_ENCODING"  envDefault:"utf-8"`

	// SourceCRS overrides the layer's .prj.
	SourceCRS       string `env:"ETAKEHR_SOURCE_CRS"`
	ForeignKeyField string `env:"ETAKEHR_FOREIGN_KEY_FIELD" envDefault:"ehr_gid"`
	HeightField     string `env:"ETAKEHR_HEIGHT_FIELD"      envDefault:"korgus_m"`

	// Regions limits output to footprints touching one of these boxes.
	Regions []geom.Bounds `env:"ETAKEHR_REGIONS" envSeparator:";"`

	MetricsTextfile string     `env:"ETAKEHR_METRICS_TEXTFILE"`
	LogLevel        slog.Level `env:"ETAKEHR_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// BindFlags registers command-line overrides. Current values become the
// flag defaults, so flags win over the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory searched for ehr*.csv and ETAK*.zip")
	fs.StringVar(&c.RegistryFile, "ehr", c.RegistryFile, "registry CSV (skips discovery)")
	fs.StringVar(&c.ArchiveFile, "etak", c.ArchiveFile, "footprint ZIP archive (skips discovery)")
	fs.StringVar(&c.Layer, "layer", c.Layer, "shapefile layer inside the archive")
	fs.StringVar(&c.SourceCRS, "source-crs", c.SourceCRS, "source CRS definition, overrides the layer .prj")
	fs.StringVar(&c.MetricsTextfile, "metrics-textfile", c.MetricsTextfile, "write Prometheus metrics to this file")
	fs.TextVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	// The first -region drops regions taken from the environment.
	fromFlags := false
	fs.Func("region", "minLon,minLat,maxLon,maxLat to keep (repeatable)", func(s string) error {
		var b geom.Bounds
		if err := b.UnmarshalText([]byte(s)); err != nil {
			return err
		}
		if !fromFlags {
			c.Regions = nil
			fromFlags = true
		}
		c.Regions = append(c.Regions, b)
		return nil
	})
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	var errs []error
	if utf8.RuneCountInString(c.RegistryDelimiter) != 1 {
		errs = append(errs, fmt.Errorf("registry delimiter %q: want a single character", c.RegistryDelimiter))
	} else if r, _ := utf8.DecodeRuneInString(c.RegistryDelimiter); r == '"' || r == '\n' || r == '\r' {
		errs = append(errs, fmt.Errorf("registry delimiter %q not allowed", c.RegistryDelimiter))
	}
	if strings.TrimSpace(c.Layer) == "" {
		errs = append(errs, errors.New("layer must not be empty"))
	}
	if c.ForeignKeyField == "" {
		errs = append(errs, errors.New("foreign key field must not be empty"))
	}
	if c.HeightField == "" {
		errs = append(errs, errors.New("height field must not be empty"))
	}
	return errors.Join(errs...)
}

// RegistryOptions converts the registry settings.
func (c Config) RegistryOptions(logger *slog.Logger) registry.Options {
	opts := registry.DefaultOptions()
	if r, _ := utf8.DecodeRuneInString(c.RegistryDelimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	if c.RegistryEncoding != "" {
		opts.Encoding = c.RegistryEncoding
	}
	opts.Logger = logger
	return opts
}

// JoinOptions converts the join settings.
func (c Config) JoinOptions(logger *slog.Logger) join.Options {
	return join.Options{
		ForeignKeyField: c.ForeignKeyField,
		HeightField:     c.HeightField,
		Extent:          geom.NewExtent(c.Regions),
		Logger:          logger,
	}
}

// LayerOrDefault returns the configured layer, falling back to ETAK's
// building layer.
func (c Config) LayerOrDefault() string {
	if strings.TrimSpace(c.Layer) == "" {
		return shape.DefaultLayer
	}
	return c.Layer
}
