// Package metrics exposes run counters in the Prometheus format, written as
// a node_exporter textfile at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/beetlebugorg/etakehr/internal/join"
	"github.com/beetlebugorg/etakehr/internal/registry"
)

// Metrics holds the Prometheus collectors for one run
type Metrics struct {
	registry *prometheus.Registry

	RegistryRows *prometheus.CounterVec
	Records      *prometheus.CounterVec
	Emitted      prometheus.Counter
	Aborted      prometheus.Gauge
	LastRun      prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RegistryRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etakehr_registry_rows_total",
			Help: "Registry rows read, by outcome",
		}, []string{"outcome"}),
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etakehr_footprint_records_total",
			Help: "Footprint records read, by outcome",
		}, []string{"outcome"}),
		Emitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "etakehr_features_emitted_total",
			Help: "Features written to the output stream",
		}),
		Aborted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "etakehr_run_aborted",
			Help: "1 if the last run stopped early on a failure",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "etakehr_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// ObserveRegistry records a registry load
func (m *Metrics) ObserveRegistry(s registry.Stats) {
	m.RegistryRows.WithLabelValues("kept").Add(float64(s.Kept))
	m.RegistryRows.WithLabelValues("dropped_code").Add(float64(s.DroppedCode))
	m.RegistryRows.WithLabelValues("dropped_year").Add(float64(s.DroppedYear))
	m.RegistryRows.WithLabelValues("duplicate").Add(float64(s.Duplicates))
}

// ObserveJoin records a finished stream and the number of features written
func (m *Metrics) ObserveJoin(s join.Stats, outcome join.Outcome, emitted int) {
	m.Records.WithLabelValues("yielded").Add(float64(s.Yielded))
	m.Records.WithLabelValues("wrong_kind").Add(float64(s.WrongKind))
	m.Records.WithLabelValues("missing_key").Add(float64(s.MissingKey))
	m.Records.WithLabelValues("malformed_key").Add(float64(s.MalformedKey))
	m.Records.WithLabelValues("unmatched_key").Add(float64(s.UnmatchedKey))
	m.Records.WithLabelValues("outside_extent").Add(float64(s.OutsideExtent))
	m.Emitted.Add(float64(emitted))

	if outcome.Aborted() {
		m.Aborted.Set(1)
	} else {
		m.Aborted.Set(0)
	}
	m.LastRun.SetToCurrentTime()
}

// WriteTextfile writes all metrics to path atomically
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
