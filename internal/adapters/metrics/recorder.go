// Package metrics records cache activity in a private Prometheus registry.
package metrics

import (
	"slices"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/cache"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "hc"

var _ cache.Observer = (*Recorder)(nil)

type Recorder struct {
	registry *prometheus.Registry

	fetches   *prometheus.CounterVec
	durations *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	inflight  prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "fetches_total",
				Help:      "Fetches settled per resource and outcome.",
			},
			[]string{"resource", "outcome"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "fetch_duration_seconds",
				Help:      "Fetch latency per resource.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "mutations_total",
				Help:      "Local mutations per resource.",
			},
			[]string{"resource"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "inflight_fetches",
				Help:      "Fetches currently running, superseded ones included.",
			},
		),
	}

	r.registry.MustRegister(r.fetches, r.durations, r.mutations, r.inflight)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) FetchStarted(string) {
	r.inflight.Inc()
}

func (r *Recorder) FetchSettled(resource string, outcome cache.Outcome, elapsed time.Duration) {
	r.inflight.Dec()
	r.fetches.WithLabelValues(resource, string(outcome)).Inc()
	r.durations.WithLabelValues(resource).Observe(elapsed.Seconds())
}

func (r *Recorder) Mutated(resource string) {
	r.mutations.WithLabelValues(resource).Inc()
}

// ResourceStats is the per-resource digest printed by --metrics.
type ResourceStats struct {
	Resource      string        `json:"resource"`
	Ready         int           `json:"ready"`
	Failed        int           `json:"failed"`
	Discarded     int           `json:"discarded"`
	Mutations     int           `json:"mutations"`
	TotalDuration time.Duration `json:"total_duration_ns"`
}

// Summary gathers the registry into per-resource stats sorted by resource name.
func (r *Recorder) Summary() ([]ResourceStats, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	byResource := map[string]*ResourceStats{}
	stats := func(resource string) *ResourceStats {
		s, ok := byResource[resource]
		if !ok {
			s = &ResourceStats{Resource: resource}
			byResource[resource] = s
		}
		return s
	}

	for _, family := range families {
		switch family.GetName() {
		case "hc_cache_fetches_total":
			for _, m := range family.GetMetric() {
				s := stats(label(m, "resource"))
				count := int(m.GetCounter().GetValue())
				switch cache.Outcome(label(m, "outcome")) {
				case cache.OutcomeReady:
					s.Ready += count
				case cache.OutcomeFailed:
					s.Failed += count
				case cache.OutcomeDiscarded:
					s.Discarded += count
				}
			}
		case "hc_cache_mutations_total":
			for _, m := range family.GetMetric() {
				stats(label(m, "resource")).Mutations += int(m.GetCounter().GetValue())
			}
		case "hc_cache_fetch_duration_seconds":
			for _, m := range family.GetMetric() {
				seconds := m.GetHistogram().GetSampleSum()
				stats(label(m, "resource")).TotalDuration += time.Duration(seconds * float64(time.Second))
			}
		}
	}

	out := make([]ResourceStats, 0, len(byResource))
	for _, s := range byResource {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b ResourceStats) int {
		switch {
		case a.Resource < b.Resource:
			return -1
		case a.Resource > b.Resource:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

func label(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
