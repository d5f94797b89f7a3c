// Package metrics counts what scenario transformations do to a database.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	premise "github.com/polca/premise-sub000"
	"github.com/prometheus/client_golang/prometheus"
)

// Relink outcomes.
const (
	OutcomeExact      = "exact"
	OutcomeGeo        = "geo"
	OutcomeSplit      = "split"
	OutcomeFallback   = "fallback"
	OutcomeUnresolved = "unresolved"
	OutcomeDropped    = "dropped"
)

type Recorder struct {
	registry *prometheus.Registry

	proxiesCreated   *prometheus.CounterVec
	datasetsDeleted  *prometheus.CounterVec
	proxiesMissing   *prometheus.CounterVec
	relinked         *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	scenarioDuration *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		proxiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premise_proxies_created_total",
			Help: "Regional proxy datasets created.",
		}, []string{"sector"}),
		datasetsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premise_datasets_deleted_total",
			Help: "Original datasets replaced by regional proxies.",
		}, []string{"sector"}),
		proxiesMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premise_proxies_missing_total",
			Help: "Regions left without a proxy for lack of a source dataset.",
		}, []string{"sector"}),
		relinked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premise_exchanges_relinked_total",
			Help: "Technosphere exchanges processed by the relinking engine, by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "premise_relink_cache_total",
			Help: "Relink resolution cache lookups, by result.",
		}, []string{"result"}),
		scenarioDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "premise_scenario_duration_seconds",
			Help:    "Wall time spent transforming one scenario.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"model", "pathway", "year"}),
	}

	r.registry.MustRegister(r.proxiesCreated, r.datasetsDeleted, r.proxiesMissing, r.relinked, r.cacheLookups, r.scenarioDuration)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ProxiesCreated(sector string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.proxiesCreated.WithLabelValues(sector).Add(float64(n))
}

func (r *Recorder) DatasetsDeleted(sector string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.datasetsDeleted.WithLabelValues(sector).Add(float64(n))
}

func (r *Recorder) ProxiesMissing(sector string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.proxiesMissing.WithLabelValues(sector).Add(float64(n))
}

func (r *Recorder) Relinked(outcome string) {
	if r == nil {
		return
	}
	r.relinked.WithLabelValues(outcome).Inc()
}

func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveScenario(scenario premise.Scenario, d time.Duration) {
	if r == nil {
		return
	}
	r.scenarioDuration.WithLabelValues(scenario.Model, scenario.Pathway, fmt.Sprint(scenario.Year)).Observe(d.Seconds())
}

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
