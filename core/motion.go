package core

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/constellation-netview/model"
)

// MotionModel updates a platform's position for a given simulation time.
type MotionModel interface {
	UpdatePosition(simTime time.Time, p *model.PlatformDefinition)
}

// StaticMotionModel leaves the platform's position unchanged.
type StaticMotionModel struct{}

// UpdatePosition for static motion does nothing.
func (m *StaticMotionModel) UpdatePosition(simTime time.Time, p *model.PlatformDefinition) {}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to update platform position.
type OrbitalSGP4MotionModel struct {
	sat satellite.Satellite
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) *OrbitalSGP4MotionModel {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat}
}

// UpdatePosition propagates the satellite to the given simulation time and updates p.Coordinates.
// go-satellite works in kilometres; we store metres in the model.
func (m *OrbitalSGP4MotionModel) UpdatePosition(simTime time.Time, p *model.PlatformDefinition) {
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	p.Coordinates = model.Motion{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}
}

// NewMotionModel chooses SGP4 for platforms with a TLE and static motion
// otherwise.
func NewMotionModel(p *model.PlatformDefinition) MotionModel {
	if p.HasOrbit() {
		return NewOrbitalModelFromTLE(p.TLE1, p.TLE2)
	}
	return &StaticMotionModel{}
}

// Fleet moves a set of node platforms together each frame.
type Fleet struct {
	entries []fleetEntry
}

type fleetEntry struct {
	platform *model.PlatformDefinition
	model    MotionModel
}

// NewFleet builds motion models for every node that has a platform.
func NewFleet(nodes []*Node) *Fleet {
	f := &Fleet{}
	seen := make(map[*model.PlatformDefinition]struct{})
	for _, n := range nodes {
		if n == nil || n.Platform == nil {
			continue
		}
		if _, dup := seen[n.Platform]; dup {
			continue
		}
		seen[n.Platform] = struct{}{}
		f.entries = append(f.entries, fleetEntry{platform: n.Platform, model: NewMotionModel(n.Platform)})
	}
	return f
}

// UpdatePositions advances every platform to simTime.
func (f *Fleet) UpdatePositions(simTime time.Time) {
	if f == nil {
		return
	}
	for _, e := range f.entries {
		e.model.UpdatePosition(simTime, e.platform)
	}
}
