package core

import (
	"fmt"

	"github.com/signalsfoundry/constellation-netview/model"
)

// NodeKind is a coarse category used by the scenario loader and the
// marker overlay.
type NodeKind string

const (
	NodeSatellite      NodeKind = "satellite"
	NodeGroundStation  NodeKind = "ground_station"
	NodeMissionControl NodeKind = "mission_control"
)

// Node is an addressable endpoint of the network. Nodes are compared by
// pointer identity: two distinct *Node values are different nodes even when
// their fields match.
type Node struct {
	ID   string
	Name string
	Kind NodeKind

	// Platform carries the node's position. A nil platform sits at the origin.
	Platform *model.PlatformDefinition

	// Visible controls whether links touching this node may be drawn.
	Visible bool

	// CommandStation marks ground stations that get a map marker.
	CommandStation bool
}

// Position returns the node position in ECEF kilometres.
func (n *Node) Position() Vec3 {
	if n == nil || n.Platform == nil {
		return Vec3{}
	}
	c := n.Platform.Coordinates
	return Vec3{X: c.X / 1000.0, Y: c.Y / 1000.0, Z: c.Z / 1000.0}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Name != "" {
		return fmt.Sprintf("%s(%s)", n.Name, n.ID)
	}
	return n.ID
}
