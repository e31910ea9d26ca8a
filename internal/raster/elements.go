package raster

import (
	"github.com/gogpu/gg"
	"github.com/google/uuid"

	"github.com/signalsfoundry/constellation-netview/core"
	"github.com/signalsfoundry/constellation-netview/render"
)

// element carries the state shared by lines and cones. Setters on a
// destroyed element are ignored.
type element struct {
	id    uuid.UUID
	scene *Scene

	active    bool
	width     float64
	material  render.Material
	color     gg.RGBA
	destroyed bool
}

func (e *element) SetActive(active bool) {
	if !e.destroyed {
		e.active = active
	}
}

func (e *element) SetWidth(width float64) {
	if !e.destroyed {
		e.width = width
	}
}

func (e *element) SetMaterial(m render.Material) {
	if !e.destroyed {
		e.material = m
	}
}

func (e *element) SetColor(c gg.RGBA) {
	if !e.destroyed {
		e.color = c
	}
}

func (e *element) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.active = false
	e.scene.release(e.id)
}

func (e *element) isDestroyed() bool { return e.destroyed }

// ID returns the scene handle.
func (e *element) ID() uuid.UUID { return e.id }

type line struct {
	element
	a, b core.Vec3
}

func (l *line) SetEndpoints(a, b core.Vec3) {
	if !l.destroyed {
		l.a, l.b = a, b
	}
}

func (l *line) draw(dc *gg.Context, cam render.Camera) error {
	if !cam.InFront(l.a) || !cam.InFront(l.b) {
		return nil
	}
	p1, p2 := cam.WorldToScreen(l.a), cam.WorldToScreen(l.b)
	dc.SetColor(l.color.Color())
	dc.SetLineWidth(l.width)
	dc.DrawLine(p1.X, p1.Y, p2.X, p2.Y)
	return dc.Stroke()
}

type cone struct {
	element
	apex, base core.Vec3
	radius     float64
}

func (c *cone) SetShape(apex, baseCenter core.Vec3, baseRadiusKm float64) {
	if !c.destroyed {
		c.apex, c.base, c.radius = apex, baseCenter, baseRadiusKm
	}
}

// draw renders the cone as its screen silhouette: a triangle from the apex
// to the two base rim points that project furthest apart.
func (c *cone) draw(dc *gg.Context, cam render.Camera) error {
	axis := c.base.Sub(c.apex)
	if axis.Norm() == 0 || !cam.InFront(c.apex) || !cam.InFront(c.base) {
		return nil
	}
	u := axis.Cross(core.Vec3{Z: 1}).Normalize()
	if u.Norm() == 0 {
		u = axis.Cross(core.Vec3{X: 1}).Normalize()
	}
	v := axis.Normalize().Cross(u)

	apex := cam.WorldToScreen(c.apex)
	r1a, r1b := c.rim(cam, u)
	r2a, r2b := c.rim(cam, v)
	left, right := r1a, r1b
	if r2a.Distance(r2b) > r1a.Distance(r1b) {
		left, right = r2a, r2b
	}

	fill := c.color
	fill.A *= coneFillAlpha
	dc.MoveTo(apex.X, apex.Y)
	dc.LineTo(left.X, left.Y)
	dc.LineTo(right.X, right.Y)
	dc.ClosePath()
	dc.SetColor(fill.Color())
	if err := dc.FillPreserve(); err != nil {
		return err
	}
	dc.SetColor(c.color.Color())
	dc.SetLineWidth(c.width)
	return dc.Stroke()
}

func (c *cone) rim(cam render.Camera, dir core.Vec3) (gg.Point, gg.Point) {
	off := dir.Scale(c.radius)
	return cam.WorldToScreen(c.base.Add(off)), cam.WorldToScreen(c.base.Sub(off))
}

type marker struct {
	node    *core.Node
	topLeft gg.Point
	size    float64
}

// draw paints a station mark: a white ring with a filled centre.
func (m marker) draw(dc *gg.Context) error {
	half := m.size / 2
	cx, cy := m.topLeft.X+half, m.topLeft.Y+half
	dc.SetColor(gg.White.Color())
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, half-1)
	if err := dc.Stroke(); err != nil {
		return err
	}
	dc.DrawCircle(cx, cy, half/3)
	return dc.Fill()
}
