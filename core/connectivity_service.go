// core/connectivity_service.go
package core

// ConnectivityService decides which node pairs are linked at a given
// instant and reconciles the Network's link set to match. A pair is linked
// when each side can reach the other: through a powered dish aimed at the
// peer (or at a body whose cone contains the peer), or through a powered
// omni antenna in range. Bodies registered on the network occlude
// line-of-sight.
type ConnectivityService struct {
	Network *Network

	// MinElevationDeg is the minimum elevation angle (degrees) required
	// for links between a ground node and a space node.
	MinElevationDeg float64
}

// NewConnectivityService wires the service to a network.
func NewConnectivityService(n *Network) *ConnectivityService {
	return &ConnectivityService{
		Network:         n,
		MinElevationDeg: 5.0,
	}
}

// occlusionToleranceKm shrinks occluding bodies so nodes sitting on the
// surface are not blocked by the body they stand on.
const occlusionToleranceKm = 1.0

type reach struct {
	kind LinkKind
	port string
}

type directedLink struct {
	source *Node
	link   Link
}

// UpdateConnectivity recomputes links between the given nodes and applies
// the difference to the network, which in turn emits add/remove events.
// Links touching nodes outside the slice are left alone.
func (cs *ConnectivityService) UpdateConnectivity(nodes []*Node, antennas []*Antenna) {
	if cs == nil || cs.Network == nil {
		return
	}

	byOwner := make(map[*Node][]*Antenna)
	for _, a := range antennas {
		if a == nil || a.Owner == nil || !a.Powered {
			continue
		}
		byOwner[a.Owner] = append(byOwner[a.Owner], a)
	}

	bodies := cs.Network.Bodies()
	desired := make([]directedLink, 0)
	for i := 0; i < len(nodes); i++ {
		a := nodes[i]
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			if a == nil || b == nil {
				continue
			}
			if !cs.geometryAllows(a, b, bodies) {
				continue
			}
			ra, okA := cs.reach(a, b, byOwner[a])
			rb, okB := cs.reach(b, a, byOwner[b])
			if !okA || !okB {
				continue
			}
			kind := LinkOmni
			if ra.kind == LinkDish || rb.kind == LinkDish {
				kind = LinkDish
			}
			desired = append(desired,
				directedLink{source: a, link: Link{Target: b, Port: ra.port, Kind: kind}},
				directedLink{source: b, link: Link{Target: a, Port: rb.port, Kind: kind}},
			)
		}
	}

	want := make(map[directedLink]struct{}, len(desired))
	for _, d := range desired {
		want[d] = struct{}{}
	}
	inScope := make(map[*Node]struct{}, len(nodes))
	for _, n := range nodes {
		inScope[n] = struct{}{}
	}

	// Drop stale links first so a kind change shows up as remove-then-add.
	for _, n := range nodes {
		for _, l := range cs.Network.Links(n) {
			if _, ok := inScope[l.Target]; !ok {
				continue
			}
			if _, ok := want[directedLink{source: n, link: l}]; !ok {
				_ = cs.Network.RemoveLink(n, l)
			}
		}
	}
	for _, d := range desired {
		_ = cs.Network.AddLink(d.source, d.link)
	}
}

// geometryAllows applies occlusion and the ground elevation mask.
func (cs *ConnectivityService) geometryAllows(a, b *Node, bodies []*Body) bool {
	pa, pb := a.Position(), b.Position()
	for _, body := range bodies {
		if !hasLineOfSight(pa.Sub(body.Position), pb.Sub(body.Position), body.RadiusKm-occlusionToleranceKm) {
			return false
		}
	}

	groundA, groundB := isGround(a), isGround(b)
	if groundA && !groundB {
		return ElevationDegrees(pa, pb) >= cs.MinElevationDeg
	}
	if groundB && !groundA {
		return ElevationDegrees(pb, pa) >= cs.MinElevationDeg
	}
	return true
}

// reach picks the best antenna on from that can reach to. A dish wins over
// an omni so the link is drawn as a dish link whenever one is in use.
func (cs *ConnectivityService) reach(from, to *Node, antennas []*Antenna) (reach, bool) {
	dist := from.Position().DistanceTo(to.Position())
	var omni *Antenna
	for _, a := range antennas {
		if a.RangeKm < dist {
			continue
		}
		if a.IsOmni() {
			if omni == nil {
				omni = a
			}
			continue
		}
		if cs.dishCovers(a, from, to) {
			return reach{kind: LinkDish, port: a.ID}, true
		}
	}
	if omni != nil {
		return reach{kind: LinkOmni, port: omni.ID}, true
	}
	return reach{}, false
}

func (cs *ConnectivityService) dishCovers(a *Antenna, from, to *Node) bool {
	if a.Target == "" {
		return false
	}
	if a.Target == to.ID {
		return true
	}
	body, ok := cs.Network.Body(a.Target)
	if !ok || a.ConeAngleDeg <= 0 {
		return false
	}
	origin := from.Position()
	return angleBetweenDeg(body.Position.Sub(origin), to.Position().Sub(origin)) <= a.ConeAngleDeg/2
}

func isGround(n *Node) bool {
	return n.Kind == NodeGroundStation || n.Kind == NodeMissionControl
}
