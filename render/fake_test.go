package render

import (
	"time"

	"github.com/gogpu/gg"

	"github.com/signalsfoundry/constellation-netview/core"
)

// fakeBackend records every renderable it hands out so tests can check the
// live count and per-element state.
type fakeBackend struct {
	lines []*fakeLine
	cones []*fakeCone
}

func (b *fakeBackend) NewLine() Line {
	l := &fakeLine{}
	b.lines = append(b.lines, l)
	return l
}

func (b *fakeBackend) NewCone() Cone {
	c := &fakeCone{}
	b.cones = append(b.cones, c)
	return c
}

func (b *fakeBackend) liveLines() int {
	n := 0
	for _, l := range b.lines {
		if !l.destroyed {
			n++
		}
	}
	return n
}

func (b *fakeBackend) liveCones() int {
	n := 0
	for _, c := range b.cones {
		if !c.destroyed {
			n++
		}
	}
	return n
}

type fakeElement struct {
	active    bool
	width     float64
	material  Material
	color     gg.RGBA
	destroyed bool
}

func (e *fakeElement) SetActive(a bool)       { e.active = a }
func (e *fakeElement) SetWidth(w float64)     { e.width = w }
func (e *fakeElement) SetMaterial(m Material) { e.material = m }
func (e *fakeElement) SetColor(c gg.RGBA)     { e.color = c }
func (e *fakeElement) Destroy() {
	if e.destroyed {
		panic("renderable destroyed twice")
	}
	e.destroyed = true
}

type fakeLine struct {
	fakeElement
	a, b core.Vec3
}

func (l *fakeLine) SetEndpoints(a, b core.Vec3) { l.a, l.b = a, b }

type fakeCone struct {
	fakeElement
	apex, base core.Vec3
	radius     float64
}

func (c *fakeCone) SetShape(apex, base core.Vec3, radius float64) {
	c.apex, c.base, c.radius = apex, base, radius
}

// fakeRegistry is a minimal NodeRegistry.
type fakeRegistry struct {
	stations []*core.Node
	subs     map[int]func(*core.Node)
	next     int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{subs: make(map[int]func(*core.Node))}
}

func (r *fakeRegistry) SubscribeUnregistered(fn func(*core.Node)) func() {
	id := r.next
	r.next++
	r.subs[id] = fn
	return func() { delete(r.subs, id) }
}

func (r *fakeRegistry) CommandStations() []*core.Node {
	return append([]*core.Node(nil), r.stations...)
}

func (r *fakeRegistry) unregister(n *core.Node) {
	for _, fn := range r.subs {
		fn(n)
	}
}

type fakeDevices struct {
	antennas []*core.Antenna
}

func (d *fakeDevices) Antennas() []*core.Antenna { return d.antennas }

type fakeConfig map[string]string

func (c fakeConfig) HasValue(k string) bool {
	_, ok := c[k]
	return ok
}
func (c fakeConfig) GetValue(k string) string { return c[k] }
func (c fakeConfig) SetValue(k, v string)     { c[k] = v }

type recordingMetrics struct {
	created, destroyed map[string]int
	frames             int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{created: map[string]int{}, destroyed: map[string]int{}}
}

func (m *recordingMetrics) ObserveFrame(time.Duration, int, int, int) { m.frames++ }
func (m *recordingMetrics) AddCreated(kind string, n int)             { m.created[kind] += n }
func (m *recordingMetrics) AddDestroyed(kind string, n int)           { m.destroyed[kind] += n }

type markerCall struct {
	node    *core.Node
	topLeft gg.Point
	size    float64
}

type recordingDrawer struct {
	calls []markerCall
}

func (d *recordingDrawer) DrawMarker(n *core.Node, topLeft gg.Point, size float64) {
	d.calls = append(d.calls, markerCall{node: n, topLeft: topLeft, size: size})
}

func visibleNode(id string) *core.Node {
	return &core.Node{ID: id, Visible: true}
}
