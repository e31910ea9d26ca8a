package render

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/signalsfoundry/constellation-netview/core"
)

// Camera projects world positions (km) to screen pixels, origin top-left.
type Camera interface {
	InFront(p core.Vec3) bool
	WorldToScreen(p core.Vec3) gg.Point
}

// PerspectiveCamera is a look-at pinhole camera.
type PerspectiveCamera struct {
	Eye, Target, Up core.Vec3
	FovYDeg         float64
	Width, Height   float64
	// Near is the minimum view-space depth considered in front. Zero means
	// anything strictly ahead of the eye.
	Near float64
}

func (c PerspectiveCamera) basis() (forward, right, up core.Vec3) {
	forward = c.Target.Sub(c.Eye).Normalize()
	upHint := c.Up
	if upHint.Norm() == 0 {
		upHint = core.Vec3{Z: 1}
	}
	right = forward.Cross(upHint).Normalize()
	if right.Norm() == 0 {
		// Up parallel to the view direction; pick any perpendicular.
		right = forward.Cross(core.Vec3{X: 1}).Normalize()
		if right.Norm() == 0 {
			right = forward.Cross(core.Vec3{Y: 1}).Normalize()
		}
	}
	up = right.Cross(forward)
	return forward, right, up
}

// InFront reports whether p has positive depth past Near.
func (c PerspectiveCamera) InFront(p core.Vec3) bool {
	forward, _, _ := c.basis()
	return p.Sub(c.Eye).Dot(forward) > c.Near
}

// WorldToScreen projects p. Points behind the camera produce meaningless
// coordinates; check InFront first.
func (c PerspectiveCamera) WorldToScreen(p core.Vec3) gg.Point {
	forward, right, up := c.basis()
	d := p.Sub(c.Eye)
	z := d.Dot(forward)
	if z == 0 {
		z = math.SmallestNonzeroFloat64
	}
	fov := c.FovYDeg
	if fov <= 0 {
		fov = 60
	}
	focal := (c.Height / 2) / math.Tan(fov*math.Pi/360)
	return gg.Point{
		X: c.Width/2 + d.Dot(right)*focal/z,
		Y: c.Height/2 - d.Dot(up)*focal/z,
	}
}
