package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Renderable kinds used as the "kind" label value.
const (
	KindLine = "line"
	KindCone = "cone"
)

// RendererCollector bundles Prometheus metrics for the network overlay
// renderer: pool sizes, renderable churn and reconcile latency.
type RendererCollector struct {
	gatherer prometheus.Gatherer

	Edges       prometheus.Gauge
	PooledLines prometheus.Gauge
	PooledCones prometheus.Gauge

	Created   *prometheus.CounterVec
	Destroyed *prometheus.CounterVec

	ReconcileDuration prometheus.Histogram
}

// NewRendererCollector registers renderer metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRendererCollector(reg prometheus.Registerer) (*RendererCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	edges, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netview_edges",
		Help: "Current number of deduplicated edges tracked by the renderer.",
	}), "netview_edges")
	if err != nil {
		return nil, err
	}
	lines, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netview_pooled_lines",
		Help: "Current number of pooled line renderables.",
	}), "netview_pooled_lines")
	if err != nil {
		return nil, err
	}
	cones, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netview_pooled_cones",
		Help: "Current number of pooled cone renderables.",
	}), "netview_pooled_cones")
	if err != nil {
		return nil, err
	}

	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netview_renderables_created_total",
		Help: "Total renderables instantiated by pool growth, labeled by kind.",
	}, []string{"kind"})
	created, err = registerCounterVec(reg, created, "netview_renderables_created_total")
	if err != nil {
		return nil, err
	}

	destroyed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netview_renderables_destroyed_total",
		Help: "Total renderables destroyed by pool shrink or detach, labeled by kind.",
	}, []string{"kind"})
	destroyed, err = registerCounterVec(reg, destroyed, "netview_renderables_destroyed_total")
	if err != nil {
		return nil, err
	}

	reconcile, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netview_frame_reconcile_duration_seconds",
		Help:    "Time spent reconciling pooled renderables in one frame.",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	}), "netview_frame_reconcile_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &RendererCollector{
		gatherer:          gatherer,
		Edges:             edges,
		PooledLines:       lines,
		PooledCones:       cones,
		Created:           created,
		Destroyed:         destroyed,
		ReconcileDuration: reconcile,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RendererCollector) Handler() http.Handler {
	var gatherer prometheus.Gatherer
	if c != nil {
		gatherer = c.gatherer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveFrame records the sizes reached after a reconcile and how long it
// took.
func (c *RendererCollector) ObserveFrame(d time.Duration, edges, lines, cones int) {
	if c == nil {
		return
	}
	if c.Edges != nil {
		c.Edges.Set(float64(edges))
	}
	if c.PooledLines != nil {
		c.PooledLines.Set(float64(lines))
	}
	if c.PooledCones != nil {
		c.PooledCones.Set(float64(cones))
	}
	if c.ReconcileDuration != nil {
		c.ReconcileDuration.Observe(d.Seconds())
	}
}

// AddCreated counts n renderables of kind instantiated.
func (c *RendererCollector) AddCreated(kind string, n int) {
	if c == nil || c.Created == nil || n <= 0 {
		return
	}
	c.Created.WithLabelValues(kind).Add(float64(n))
}

// AddDestroyed counts n renderables of kind destroyed.
func (c *RendererCollector) AddDestroyed(kind string, n int) {
	if c == nil || c.Destroyed == nil || n <= 0 {
		return
	}
	c.Destroyed.WithLabelValues(kind).Add(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
