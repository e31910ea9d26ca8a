package model

// MotionSource indicates how a platform's motion is determined.
type MotionSource int

const (
	MotionSourceStatic MotionSource = iota // fixed coordinates
	MotionSourceTLE                        // SGP4 propagation from a two-line element set
)

// String returns the scenario-file spelling of the motion source.
func (m MotionSource) String() string {
	switch m {
	case MotionSourceTLE:
		return "tle"
	default:
		return "static"
	}
}

// Motion represents a position in ECEF metres.
type Motion struct {
	X float64
	Y float64
	Z float64
}

// PlatformDefinition is the physical carrier of a network node: a
// satellite, a ground site, or the mission control centre.
type PlatformDefinition struct {
	ID   string
	Name string

	Coordinates  Motion
	MotionSource MotionSource

	// TLE lines, only consulted when MotionSource is MotionSourceTLE.
	TLE1 string
	TLE2 string
}

// HasOrbit reports whether the platform carries a usable TLE.
func (p *PlatformDefinition) HasOrbit() bool {
	return p != nil && p.MotionSource == MotionSourceTLE && p.TLE1 != "" && p.TLE2 != ""
}
