package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LoopCollector exposes metrics for the frame loop that drives the
// renderer: frame count, connectivity recompute latency, the live directed
// link count and filter hot reloads.
type LoopCollector struct {
	gatherer prometheus.Gatherer

	Frames             prometheus.Counter
	ConnectivityUpdate prometheus.Histogram
	Links              prometheus.Gauge
	FilterReloads      prometheus.Counter
}

// NewLoopCollector registers frame loop metrics against the provided registerer.
func NewLoopCollector(reg prometheus.Registerer) (*LoopCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netview_frames_total",
		Help: "Cumulative number of frames ticked.",
	}), "netview_frames_total")
	if err != nil {
		return nil, err
	}

	update := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netview_connectivity_update_duration_seconds",
		Help:    "Duration of one connectivity recompute over all node pairs.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	update, err = registerHistogram(reg, update, "netview_connectivity_update_duration_seconds")
	if err != nil {
		return nil, err
	}

	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netview_links",
		Help: "Current number of directed links in the network model.",
	}), "netview_links")
	if err != nil {
		return nil, err
	}

	reloads, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netview_filter_reloads_total",
		Help: "Cumulative number of map filter values applied from settings file changes.",
	}), "netview_filter_reloads_total")
	if err != nil {
		return nil, err
	}

	return &LoopCollector{
		gatherer:           gatherer,
		Frames:             frames,
		ConnectivityUpdate: update,
		Links:              links,
		FilterReloads:      reloads,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *LoopCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveConnectivity records one connectivity recompute and the resulting
// directed link count.
func (c *LoopCollector) ObserveConnectivity(d time.Duration, links int) {
	if c == nil {
		return
	}
	if c.ConnectivityUpdate != nil {
		c.ConnectivityUpdate.Observe(d.Seconds())
	}
	if c.Links != nil {
		c.Links.Set(float64(links))
	}
}

// IncFrames increments the frame counter.
func (c *LoopCollector) IncFrames() {
	if c == nil || c.Frames == nil {
		return
	}
	c.Frames.Inc()
}

// IncFilterReloads increments the hot reload counter.
func (c *LoopCollector) IncFilterReloads() {
	if c == nil || c.FilterReloads == nil {
		return
	}
	c.FilterReloads.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
