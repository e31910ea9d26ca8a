package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gg"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/signalsfoundry/constellation-netview/core"
	"github.com/signalsfoundry/constellation-netview/internal/logging"
)

var (
	// ErrNilCollaborator is returned by Attach when a required collaborator
	// is missing.
	ErrNilCollaborator = errors.New("nil collaborator")
	// ErrDetached is returned by Tick after Detach.
	ErrDetached = errors.New("renderer detached")
)

// MapFilterKey is the config field holding the persisted filter.
const MapFilterKey = "MapFilter"

// Renderable kinds reported to Metrics.
const (
	kindLine = "line"
	kindCone = "cone"
)

// MarkerSize is the edge length, in pixels, of a station marker.
const MarkerSize = 16.0

// NetworkModel is the topology the renderer mirrors.
type NetworkModel interface {
	SubscribeLinkAdded(fn core.LinkHandler) (unsubscribe func())
	SubscribeLinkRemoved(fn core.LinkHandler) (unsubscribe func())
	Path(observer *core.Node) []core.Hop
	Body(id string) (*core.Body, bool)
	MissionControl() *core.Node
}

// NodeRegistry reports node departures and lists marker stations.
type NodeRegistry interface {
	SubscribeUnregistered(fn func(*core.Node)) (unsubscribe func())
	CommandStations() []*core.Node
}

// DeviceList exposes the candidate cone sources.
type DeviceList interface {
	Antennas() []*core.Antenna
}

// MarkerDrawer paints a fixed-size marker whose top-left corner is at
// topLeft.
type MarkerDrawer interface {
	DrawMarker(node *core.Node, topLeft gg.Point, size float64)
}

// ConfigNode is a flat key/value persisted configuration section.
type ConfigNode interface {
	HasValue(key string) bool
	GetValue(key string) string
	SetValue(key, value string)
}

// Metrics receives per-frame renderer measurements.
type Metrics interface {
	ObserveFrame(d time.Duration, edges, lines, cones int)
	AddCreated(kind string, n int)
	AddDestroyed(kind string, n int)
}

// Collaborators are the external parts a Renderer is wired to.
type Collaborators struct {
	Network NetworkModel
	Nodes   NodeRegistry
	Devices DeviceList
	Backend Backend

	// Observer returns the focused node whose route is highlighted. Nil, or
	// a nil result, means no path.
	Observer func() *core.Node
	// Overlay reports whether the map overlay is showing. Nil means always.
	Overlay func() bool
}

// Style is the fixed look of overlay geometry.
type Style struct {
	LineWidth float64
	ConeWidth float64
	Material  Material
}

// DefaultStyle returns width 5 lines and width 2 cones.
func DefaultStyle() Style {
	return Style{LineWidth: 5, ConeWidth: 2, Material: MaterialOrbitLines}
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l logging.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics sets the metrics sink. Nil is ignored.
func WithMetrics(m Metrics) Option {
	return func(r *Renderer) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracer sets the tracer used for per-frame spans. Nil is ignored.
func WithTracer(t trace.Tracer) Option {
	return func(r *Renderer) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithPalette overrides the colors.
func WithPalette(p Palette) Option {
	return func(r *Renderer) { r.policy.Palette = p }
}

// WithStyle overrides widths and material.
func WithStyle(s Style) Option {
	return func(r *Renderer) { r.style = s }
}

// WithFilter sets the initial filter.
func WithFilter(f Filter) Option {
	return func(r *Renderer) { r.filter = f }
}

// Stats summarises the renderer state after the latest reconcile.
type Stats struct {
	Edges       int
	Lines       int
	Cones       int
	ActiveLines int
	PathEdges   int
}

// Renderer keeps pooled lines and cones in step with the network. It is
// driven from a single goroutine: link and unregister notifications must
// arrive on the goroutine that calls Tick.
type Renderer struct {
	collab Collaborators

	log     logging.Logger
	metrics Metrics
	tracer  trace.Tracer

	style  Style
	policy Policy
	filter Filter

	edges *EdgeSet
	lines pool[Line]
	cones pool[Cone]

	coneScratch []coneSource
	stats       Stats

	unsubscribe []func()
	detached    bool
}

type coneSource struct {
	antenna *core.Antenna
	body    *core.Body
}

// Attach builds a Renderer and subscribes it to the collaborators' events.
// The returned renderer must be released with Detach.
func Attach(c Collaborators, opts ...Option) (*Renderer, error) {
	switch {
	case c.Network == nil:
		return nil, fmt.Errorf("%w: network", ErrNilCollaborator)
	case c.Nodes == nil:
		return nil, fmt.Errorf("%w: node registry", ErrNilCollaborator)
	case c.Devices == nil:
		return nil, fmt.Errorf("%w: device list", ErrNilCollaborator)
	case c.Backend == nil:
		return nil, fmt.Errorf("%w: backend", ErrNilCollaborator)
	}

	r := &Renderer{
		collab:  c,
		log:     logging.Noop(),
		metrics: noopMetrics{},
		tracer:  noop.NewTracerProvider().Tracer(""),
		style:   DefaultStyle(),
		policy:  Policy{Palette: DefaultPalette()},
		filter:  DefaultFilter,
		edges:   NewEdgeSet(),
	}
	r.lines.make = c.Backend.NewLine
	r.cones.make = c.Backend.NewCone
	for _, opt := range opts {
		opt(r)
	}

	r.unsubscribe = append(r.unsubscribe,
		c.Network.SubscribeLinkAdded(r.onLinkAdded),
		c.Network.SubscribeLinkRemoved(r.onLinkRemoved),
		c.Nodes.SubscribeUnregistered(r.onNodeUnregistered),
	)

	r.log.Info(context.Background(), "network renderer attached",
		logging.String("filter", r.filter.String()),
	)
	return r, nil
}

// Detach unsubscribes every handler and destroys all pooled renderables.
// It is safe to call more than once.
func (r *Renderer) Detach() {
	if r == nil || r.detached {
		return
	}
	for _, unsub := range r.unsubscribe {
		if unsub != nil {
			unsub()
		}
	}
	r.unsubscribe = nil

	lines := r.lines.destroyAll()
	cones := r.cones.destroyAll()
	r.metrics.AddDestroyed(kindLine, lines)
	r.metrics.AddDestroyed(kindCone, cones)
	r.edges.Clear()
	r.stats = Stats{}
	r.detached = true

	r.log.Info(context.Background(), "network renderer detached",
		logging.Int("lines_destroyed", lines),
		logging.Int("cones_destroyed", cones),
	)
}

func (r *Renderer) onLinkAdded(source *core.Node, link core.Link) {
	if r.detached {
		return
	}
	r.edges.Add(EdgeOf(source, link))
}

func (r *Renderer) onLinkRemoved(source *core.Node, link core.Link) {
	if r.detached {
		return
	}
	r.edges.Remove(EdgeOf(source, link))
}

func (r *Renderer) onNodeUnregistered(n *core.Node) {
	if r.detached {
		return
	}
	r.edges.RemoveNode(n)
}

// Filter returns the current filter.
func (r *Renderer) Filter() Filter { return r.filter }

// SetFilter replaces the filter; it applies from the next Tick.
func (r *Renderer) SetFilter(f Filter) { r.filter = f }

// Edges exposes the mirrored edge set for inspection.
func (r *Renderer) Edges() *EdgeSet { return r.edges }

// Stats returns the counts from the latest Tick.
func (r *Renderer) Stats() Stats { return r.stats }

// Tick reconciles pooled lines and then cones against the current edge set
// and device list. It does nothing while the overlay is hidden.
func (r *Renderer) Tick(ctx context.Context, frame uint64) error {
	if r.detached {
		return ErrDetached
	}
	if r.collab.Overlay != nil && !r.collab.Overlay() {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "netview.frame",
		trace.WithAttributes(attribute.Int64("netview.frame", int64(frame))),
	)
	defer span.End()

	start := time.Now()
	r.reconcileEdges()
	r.reconcileCones()
	elapsed := time.Since(start)

	r.metrics.ObserveFrame(elapsed, r.stats.Edges, r.stats.Lines, r.stats.Cones)
	span.SetAttributes(
		attribute.Int("netview.edges", r.stats.Edges),
		attribute.Int("netview.cones", r.stats.Cones),
		attribute.Int("netview.path_edges", r.stats.PathEdges),
	)

	ctx, log := logging.WithFrameLogger(ctx, r.log, frame)
	log.Debug(ctx, "frame reconciled",
		logging.Int("edges", r.stats.Edges),
		logging.Int("active_lines", r.stats.ActiveLines),
		logging.Int("cones", r.stats.Cones),
		logging.Int("path_edges", r.stats.PathEdges),
		logging.Any("duration", elapsed),
	)
	return nil
}

func (r *Renderer) activePath() ActivePath {
	if !r.filter.ShowPath() || r.collab.Observer == nil {
		return ActivePath{}
	}
	observer := r.collab.Observer()
	if observer == nil {
		return ActivePath{}
	}
	return NewActivePath(r.collab.Network.Path(observer))
}

func (r *Renderer) reconcileEdges() {
	created, destroyed := r.lines.resize(r.edges.Len())
	r.metrics.AddCreated(kindLine, created)
	r.metrics.AddDestroyed(kindLine, destroyed)

	path := r.activePath()
	active := 0
	for i, e := range r.edges.edges {
		l := r.lines.items[i]
		l.SetMaterial(r.style.Material)
		l.SetWidth(r.style.LineWidth)
		l.SetEndpoints(e.A.Position(), e.B.Position())
		d := r.policy.Decide(e, r.filter, path)
		l.SetColor(d.Color)
		l.SetActive(d.Active)
		if d.Active {
			active++
		}
	}

	r.stats.Edges = r.edges.Len()
	r.stats.Lines = r.lines.len()
	r.stats.ActiveLines = active
	r.stats.PathEdges = path.Len()
}

func (r *Renderer) reconcileCones() {
	sources := r.coneScratch[:0]
	for _, a := range r.collab.Devices.Antennas() {
		if a == nil || a.Owner == nil || !a.Powered || !a.CanTarget {
			continue
		}
		body, ok := r.collab.Network.Body(a.Target)
		if !ok || body == nil {
			continue
		}
		sources = append(sources, coneSource{antenna: a, body: body})
	}

	created, destroyed := r.cones.resize(len(sources))
	r.metrics.AddCreated(kindCone, created)
	r.metrics.AddDestroyed(kindCone, destroyed)

	for i, src := range sources {
		c := r.cones.items[i]
		c.SetMaterial(r.style.Material)
		c.SetWidth(r.style.ConeWidth)
		c.SetShape(src.antenna.Owner.Position(), src.body.Position, src.body.RadiusKm)
		c.SetColor(r.policy.Palette.Cone)
		c.SetActive(true)
	}

	clear(sources)
	r.coneScratch = sources[:0]
	r.stats.Cones = r.cones.len()
}

// DrawMarkers draws a marker for every command station and for mission
// control that lies in front of the camera. It reads state only.
func (r *Renderer) DrawMarkers(cam Camera, drawer MarkerDrawer) int {
	if r.detached || cam == nil || drawer == nil {
		return 0
	}
	if r.collab.Overlay != nil && !r.collab.Overlay() {
		return 0
	}

	stations := r.collab.Nodes.CommandStations()
	if mc := r.collab.Network.MissionControl(); mc != nil {
		stations = append(stations, mc)
	}

	drawn := 0
	half := MarkerSize / 2
	for _, n := range stations {
		if n == nil {
			continue
		}
		pos := n.Position()
		if !cam.InFront(pos) {
			continue
		}
		p := cam.WorldToScreen(pos)
		drawer.DrawMarker(n, gg.Point{X: p.X - half, Y: p.Y - half}, MarkerSize)
		drawn++
	}
	return drawn
}

// Load reads the persisted filter. A missing or unparsable value selects
// DefaultFilter; it is never an error.
func (r *Renderer) Load(node ConfigNode) Filter {
	ctx := context.Background()
	if node == nil || !node.HasValue(MapFilterKey) {
		r.filter = DefaultFilter
		r.log.Debug(ctx, "map filter not set; using default",
			logging.String("filter", r.filter.String()),
		)
		return r.filter
	}

	raw := node.GetValue(MapFilterKey)
	f, err := ParseFilter(raw)
	if err != nil {
		r.filter = DefaultFilter
		r.log.Warn(ctx, "map filter unparsable; using default",
			logging.String("value", raw),
			logging.String("filter", r.filter.String()),
			logging.Err(err),
		)
		return r.filter
	}
	r.filter = f
	return r.filter
}

// Save writes the current filter in its symbolic form.
func (r *Renderer) Save(node ConfigNode) {
	if node == nil {
		return
	}
	node.SetValue(MapFilterKey, r.filter.String())
}

type noopMetrics struct{}

func (noopMetrics) ObserveFrame(time.Duration, int, int, int) {}
func (noopMetrics) AddCreated(string, int)                    {}
func (noopMetrics) AddDestroyed(string, int)                  {}
