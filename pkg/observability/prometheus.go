package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements the hooks with Prometheus metrics kept in a private
// registry. CLI runs are short lived, so the metrics are written out with
// [Prometheus.WriteTextfile] for the node exporter textfile collector
// rather than scraped.
type Prometheus struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stagesTotal   *prometheus.CounterVec
	instances     prometheus.Gauge
	visited       prometheus.Gauge
	targetsTotal  *prometheus.CounterVec
	chainsTotal   prometheus.Counter
	cacheOps      *prometheus.CounterVec
	cacheBytes    prometheus.Counter
}

// NewPrometheus creates the metrics and registers them.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leakpath_stage_duration_seconds",
				Help:    "Duration of analysis stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"stage"},
		),
		stagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leakpath_stages_total",
				Help: "Analysis stages run, by outcome",
			},
			[]string{"stage", "status"},
		),
		instances: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leakpath_snapshot_instances",
				Help: "Instances in the last loaded snapshot",
			},
		),
		visited: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leakpath_search_visited_instances",
				Help: "Instances expanded by the last path search",
			},
		),
		targetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leakpath_targets_total",
				Help: "Searched targets, by result",
			},
			[]string{"result"},
		),
		chainsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leakpath_chains_total",
				Help: "Reference chains built",
			},
		),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leakpath_cache_operations_total",
				Help: "Cache operations, by key type and outcome",
			},
			[]string{"key_type", "op"},
		),
		cacheBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leakpath_cache_written_bytes_total",
				Help: "Bytes written to the cache",
			},
		),
	}
	p.registry.MustRegister(
		p.stageDuration, p.stagesTotal,
		p.instances, p.visited,
		p.targetsTotal, p.chainsTotal,
		p.cacheOps, p.cacheBytes,
	)
	return p
}

// Registry returns the registry holding the metrics.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// WriteTextfile writes the metrics in the text exposition format.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

func (p *Prometheus) stage(stage string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	p.stagesTotal.WithLabelValues(stage, status).Inc()
}

func (p *Prometheus) OnLoadStart(context.Context, string) {}

func (p *Prometheus) OnLoadComplete(_ context.Context, _ string, instances int, d time.Duration, err error) {
	p.stage("load", d, err)
	if err == nil {
		p.instances.Set(float64(instances))
	}
}

func (p *Prometheus) OnSearchStart(context.Context, int) {}

func (p *Prometheus) OnSearchComplete(_ context.Context, ev SearchEvent, err error) {
	p.stage("search", ev.Duration, err)
	if err != nil {
		return
	}
	p.visited.Set(float64(ev.Visited))
	p.targetsTotal.WithLabelValues("found").Add(float64(ev.Found - ev.Excluded))
	p.targetsTotal.WithLabelValues("excluded").Add(float64(ev.Excluded))
	p.targetsTotal.WithLabelValues("unreachable").Add(float64(ev.Targets - ev.Found))
}

func (p *Prometheus) OnChainsComplete(_ context.Context, chains int, d time.Duration, err error) {
	p.stage("chains", d, err)
	p.chainsTotal.Add(float64(chains))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.Add(float64(size))
}

var (
	_ AnalysisHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
)
