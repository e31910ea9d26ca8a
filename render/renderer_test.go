package render

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/constellation-netview/core"
	"github.com/signalsfoundry/constellation-netview/model"
)

type harness struct {
	net     *core.Network
	nodes   *fakeRegistry
	devices *fakeDevices
	backend *fakeBackend
	metrics *recordingMetrics

	observer *core.Node
	overlay  bool

	r *Renderer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		net:     core.NewNetwork(),
		nodes:   newFakeRegistry(),
		devices: &fakeDevices{},
		backend: &fakeBackend{},
		metrics: newRecordingMetrics(),
		overlay: true,
	}
	opts = append([]Option{WithMetrics(h.metrics)}, opts...)
	r, err := Attach(Collaborators{
		Network:  h.net,
		Nodes:    h.nodes,
		Devices:  h.devices,
		Backend:  h.backend,
		Observer: func() *core.Node { return h.observer },
		Overlay:  func() bool { return h.overlay },
	}, opts...)
	require.NoError(t, err)
	h.r = r
	t.Cleanup(r.Detach)
	return h
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, h.r.Tick(context.Background(), 1))
}

func placedNode(id string, x float64) *core.Node {
	return &core.Node{
		ID:       id,
		Visible:  true,
		Platform: &model.PlatformDefinition{ID: id, Coordinates: model.Motion{X: x * 1000}},
	}
}

func TestAttachRequiresCollaborators(t *testing.T) {
	full := Collaborators{
		Network: core.NewNetwork(),
		Nodes:   newFakeRegistry(),
		Devices: &fakeDevices{},
		Backend: &fakeBackend{},
	}
	for name, mutate := range map[string]func(*Collaborators){
		"network": func(c *Collaborators) { c.Network = nil },
		"nodes":   func(c *Collaborators) { c.Nodes = nil },
		"devices": func(c *Collaborators) { c.Devices = nil },
		"backend": func(c *Collaborators) { c.Backend = nil },
	} {
		c := full
		mutate(&c)
		_, err := Attach(c)
		require.ErrorIs(t, err, ErrNilCollaborator, name)
	}
}

func TestTickMirrorsLinkEvents(t *testing.T) {
	h := newHarness(t)
	a, b, c := placedNode("a", 1), placedNode("b", 2), placedNode("c", 3)

	require.NoError(t, h.net.AddLink(a, core.Link{Target: b, Port: "p1", Kind: core.LinkOmni}))
	require.NoError(t, h.net.AddLink(b, core.Link{Target: a, Port: "p2", Kind: core.LinkOmni}))
	require.NoError(t, h.net.AddLink(b, core.Link{Target: c, Port: "p3", Kind: core.LinkDish}))
	h.tick(t)

	require.Equal(t, 2, h.r.Edges().Len(), "opposing links collapse into one edge")
	require.Equal(t, 2, h.backend.liveLines())
	require.Equal(t, 2, h.r.Stats().Lines)

	first := h.backend.lines[0]
	require.Equal(t, core.Vec3{X: 1}, first.a)
	require.Equal(t, core.Vec3{X: 2}, first.b)
	require.Equal(t, 5.0, first.width)
	require.Equal(t, MaterialOrbitLines, first.material)
	require.True(t, first.active)
	require.Equal(t, DefaultPalette().Omni, first.color)

	require.NoError(t, h.net.RemoveLink(b, core.Link{Target: c, Port: "p3", Kind: core.LinkDish}))
	h.tick(t)
	require.Equal(t, 1, h.backend.liveLines())
	require.True(t, h.backend.lines[1].destroyed, "trailing excess is destroyed")
	require.False(t, h.backend.lines[0].destroyed, "surviving slot is reused")
	require.Equal(t, 2, h.metrics.created[kindLine])
	require.Equal(t, 1, h.metrics.destroyed[kindLine])
}

func TestTickSkippedWhileOverlayHidden(t *testing.T) {
	h := newHarness(t)
	a, b := placedNode("a", 1), placedNode("b", 2)
	require.NoError(t, h.net.AddLink(a, core.Link{Target: b, Kind: core.LinkOmni}))

	h.overlay = false
	h.tick(t)
	require.Equal(t, 1, h.r.Edges().Len(), "events still recorded while hidden")
	require.Empty(t, h.backend.lines, "no reconciliation while hidden")
	require.Zero(t, h.metrics.frames)

	h.overlay = true
	h.tick(t)
	require.Len(t, h.backend.lines, 1)
}

func TestUnregisterCascadesIntoPool(t *testing.T) {
	h := newHarness(t)
	a, b, c := placedNode("a", 1), placedNode("b", 2), placedNode("c", 3)
	require.NoError(t, h.net.AddLink(a, core.Link{Target: b, Kind: core.LinkOmni}))
	require.NoError(t, h.net.AddLink(c, core.Link{Target: a, Kind: core.LinkDish}))
	require.NoError(t, h.net.AddLink(b, core.Link{Target: c, Kind: core.LinkOmni}))
	h.tick(t)
	require.Equal(t, 3, h.backend.liveLines())

	h.nodes.unregister(a)
	h.tick(t)
	require.Equal(t, 1, h.r.Edges().Len())
	require.Equal(t, 1, h.backend.liveLines())
	for _, e := range h.r.Edges().Edges() {
		require.False(t, e.Touches(a))
	}
}

func TestTickPathPrecedence(t *testing.T) {
	h := newHarness(t, WithFilter(FilterAny|FilterOmni|FilterPath))
	obs, relay, mc := placedNode("obs", 1), placedNode("relay", 2), placedNode("mc", 3)
	h.net.SetMissionControl(mc)
	h.observer = obs

	require.NoError(t, h.net.AddLink(obs, core.Link{Target: relay, Kind: core.LinkDish}))
	require.NoError(t, h.net.AddLink(relay, core.Link{Target: mc, Kind: core.LinkDish}))
	h.tick(t)

	for i, l := range h.backend.lines {
		require.True(t, l.active, "line %d on the path should be active", i)
		require.Equal(t, DefaultPalette().Path, l.color)
	}
	require.Equal(t, 2, h.r.Stats().PathEdges)

	h.observer = nil
	h.tick(t)
	for i, l := range h.backend.lines {
		require.False(t, l.active, "line %d: no observer, dish hidden by filter", i)
		require.Equal(t, DefaultPalette().Dish, l.color)
	}
}

func TestTickCategoryFilter(t *testing.T) {
	h := newHarness(t, WithFilter(FilterAny|FilterOmni))
	a, b, c := placedNode("a", 1), placedNode("b", 2), placedNode("c", 3)
	require.NoError(t, h.net.AddLink(a, core.Link{Target: b, Kind: core.LinkOmni}))
	require.NoError(t, h.net.AddLink(b, core.Link{Target: c, Kind: core.LinkDish}))
	h.tick(t)

	require.True(t, h.backend.lines[0].active, "omni edge shown")
	require.False(t, h.backend.lines[1].active, "dish edge hidden")
	require.Equal(t, 1, h.r.Stats().ActiveLines)

	h.r.SetFilter(DefaultFilter)
	h.tick(t)
	require.True(t, h.backend.lines[1].active)
}

func TestTickCones(t *testing.T) {
	h := newHarness(t)
	earth := &core.Body{ID: "earth", Position: core.Vec3{}, RadiusKm: 6371}
	require.NoError(t, h.net.AddBody(earth))

	owner := placedNode("relay", 42000)
	good := &core.Antenna{ID: "dish", Owner: owner, Powered: true, CanTarget: true, Target: "earth"}
	unpowered := &core.Antenna{ID: "off", Owner: owner, CanTarget: true, Target: "earth"}
	omni := &core.Antenna{ID: "omni", Owner: owner, Powered: true}
	lost := &core.Antenna{ID: "lost", Owner: owner, Powered: true, CanTarget: true, Target: "mun"}
	h.devices.antennas = []*core.Antenna{unpowered, good, omni, lost, nil}

	h.tick(t)
	require.Equal(t, 1, h.backend.liveCones())
	cone := h.backend.cones[0]
	require.Equal(t, core.Vec3{X: 42000}, cone.apex)
	require.Equal(t, earth.Position, cone.base)
	require.Equal(t, 6371.0, cone.radius)
	require.Equal(t, 2.0, cone.width)
	require.Equal(t, DefaultPalette().Cone, cone.color)
	require.True(t, cone.active)

	// The lost dish becomes resolvable once its body appears.
	require.NoError(t, h.net.AddBody(&core.Body{ID: "mun", Position: core.Vec3{X: 12000}, RadiusKm: 200}))
	h.tick(t)
	require.Equal(t, 2, h.backend.liveCones())

	h.devices.antennas = nil
	h.tick(t)
	require.Zero(t, h.backend.liveCones())
	require.Equal(t, 2, h.metrics.destroyed[kindCone])
}

func TestDetachReleasesEverything(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.net.AddBody(&core.Body{ID: "earth", RadiusKm: 1}))
	a, b := placedNode("a", 1), placedNode("b", 2)
	require.NoError(t, h.net.AddLink(a, core.Link{Target: b, Kind: core.LinkOmni}))
	h.devices.antennas = []*core.Antenna{{ID: "d", Owner: a, Powered: true, CanTarget: true, Target: "earth"}}
	h.tick(t)
	require.Equal(t, 1, h.backend.liveLines())
	require.Equal(t, 1, h.backend.liveCones())

	h.r.Detach()
	require.Zero(t, h.backend.liveLines())
	require.Zero(t, h.backend.liveCones())
	require.Zero(t, h.net.SubscriberCount())
	require.Empty(t, h.nodes.subs)

	// Further notifications are ignored and Tick refuses to run.
	require.NoError(t, h.net.AddLink(b, core.Link{Target: a, Kind: core.LinkDish}))
	require.Zero(t, h.r.Edges().Len())
	require.True(t, errors.Is(h.r.Tick(context.Background(), 2), ErrDetached))

	h.r.Detach()
}

func TestDrawMarkers(t *testing.T) {
	h := newHarness(t)
	front := placedNode("front", 0)
	front.CommandStation = true
	behind := placedNode("behind", 0)
	behind.Platform.Coordinates = model.Motion{Z: -200 * 1000}
	behind.CommandStation = true
	mc := placedNode("mc", 0)
	mc.Platform.Coordinates = model.Motion{Y: 10 * 1000}
	h.nodes.stations = []*core.Node{front, behind}
	h.net.SetMissionControl(mc)

	cam := PerspectiveCamera{
		Eye:     core.Vec3{Z: -100},
		Target:  core.Vec3{},
		Up:      core.Vec3{Y: 1},
		FovYDeg: 90,
		Width:   200,
		Height:  200,
	}
	drawer := &recordingDrawer{}
	require.Equal(t, 2, h.r.DrawMarkers(cam, drawer))
	require.Len(t, drawer.calls, 2)

	require.Same(t, front, drawer.calls[0].node)
	require.InDelta(t, 92, drawer.calls[0].topLeft.X, 1e-9)
	require.InDelta(t, 92, drawer.calls[0].topLeft.Y, 1e-9)
	require.Equal(t, MarkerSize, drawer.calls[0].size)

	require.Same(t, mc, drawer.calls[1].node)
	require.Less(t, drawer.calls[1].topLeft.Y, 92.0, "positive Y projects upward on screen")

	h.overlay = false
	require.Zero(t, h.r.DrawMarkers(cam, drawer))
}

func TestLoadFallsBackToDefault(t *testing.T) {
	h := newHarness(t, WithFilter(FilterPath))

	require.Equal(t, DefaultFilter, h.r.Load(fakeConfig{MapFilterKey: "Lasers, Omni"}))
	require.Equal(t, DefaultFilter, h.r.Filter())

	h.r.SetFilter(FilterPath)
	require.Equal(t, DefaultFilter, h.r.Load(fakeConfig{}))
	require.Equal(t, DefaultFilter, h.r.Load(nil))

	require.Equal(t, FilterAny|FilterDish, h.r.Load(fakeConfig{MapFilterKey: "Dish, Any"}))
}

func TestSaveWritesSymbolicName(t *testing.T) {
	h := newHarness(t, WithFilter(DefaultFilter|FilterPath))
	cfg := fakeConfig{}
	h.r.Save(cfg)
	require.Equal(t, "OmniDish, Any, Path", cfg[MapFilterKey])

	h.r.SetFilter(FilterNone)
	require.Equal(t, FilterNone|FilterPath|DefaultFilter, h.r.Load(fakeConfig{MapFilterKey: cfg[MapFilterKey]}))
}

func TestCustomPaletteAndStyle(t *testing.T) {
	pal := DefaultPalette()
	pal.Omni = gg.Hex("#ff0000")
	h := newHarness(t, WithPalette(pal), WithStyle(Style{LineWidth: 1, ConeWidth: 1, Material: "debug"}))
	a, b := placedNode("a", 1), placedNode("b", 2)
	require.NoError(t, h.net.AddLink(a, core.Link{Target: b, Kind: core.LinkOmni}))
	h.tick(t)

	l := h.backend.lines[0]
	require.Equal(t, pal.Omni, l.color)
	require.Equal(t, 1.0, l.width)
	require.Equal(t, Material("debug"), l.material)
}
