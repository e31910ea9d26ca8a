package core

// Antenna is a transmitting device mounted on a node. Omni antennas have
// CanTarget == false; dishes point at Target, which names either a node or
// a celestial body.
type Antenna struct {
	ID    string
	Owner *Node

	Powered   bool
	CanTarget bool
	Target    string

	// RangeKm is the maximum distance the antenna can reach.
	RangeKm float64

	// ConeAngleDeg is the full opening angle of a dish aimed at a body.
	// Nodes inside the cone are reachable without being targeted directly.
	ConeAngleDeg float64
}

// IsOmni reports whether the antenna broadcasts in every direction.
func (a *Antenna) IsOmni() bool {
	return a != nil && !a.CanTarget
}

// Body is a celestial body a dish can be aimed at. Bodies also occlude
// line-of-sight between nodes.
type Body struct {
	ID       string
	Name     string
	Position Vec3
	RadiusKm float64
}
