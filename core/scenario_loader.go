// core/scenario_loader.go
package core

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-netview/model"
)

// ErrScenarioInvalid marks structural problems in a scenario file.
var ErrScenarioInvalid = errors.New("invalid scenario")

// Scenario is everything a scenario file describes, resolved into live
// objects. Nodes and antennas keep file order.
type Scenario struct {
	Nodes          []*Node
	Antennas       []*Antenna
	Bodies         []*Body
	MissionControl *Node
}

// File shapes, decoded then resolved into Scenario.
type scenarioYAML struct {
	Bodies         []bodyYAML    `yaml:"bodies"`
	Nodes          []nodeYAML    `yaml:"nodes"`
	Antennas       []antennaYAML `yaml:"antennas"`
	MissionControl string        `yaml:"mission_control"`
}

type bodyYAML struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	RadiusKm float64      `yaml:"radius_km"`
	Position positionYAML `yaml:"position"`
}

type nodeYAML struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	Kind           string       `yaml:"kind"`
	Visible        *bool        `yaml:"visible"` // optional; defaults to true
	CommandStation bool         `yaml:"command_station"`
	Position       positionYAML `yaml:"position"` // kilometres
	TLE            []string     `yaml:"tle"`
}

type antennaYAML struct {
	ID           string  `yaml:"id"`
	Owner        string  `yaml:"owner"`
	Powered      *bool   `yaml:"powered"` // optional; defaults to true
	Target       string  `yaml:"target"`
	RangeKm      float64 `yaml:"range_km"`
	ConeAngleDeg float64 `yaml:"cone_angle_deg"`
}

type positionYAML struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// LoadScenario decodes a YAML scenario and resolves node references.
// A dish is any antenna with a non-empty target.
func LoadScenario(r io.Reader) (*Scenario, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrScenarioInvalid)
	}

	var raw scenarioYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &Scenario{}, nil
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	sc := &Scenario{}
	bodyIDs := make(map[string]struct{})
	for _, b := range raw.Bodies {
		if b.ID == "" || b.RadiusKm <= 0 {
			return nil, fmt.Errorf("%w: body %q needs an id and a positive radius", ErrScenarioInvalid, b.ID)
		}
		if _, dup := bodyIDs[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate body %q", ErrScenarioInvalid, b.ID)
		}
		bodyIDs[b.ID] = struct{}{}
		sc.Bodies = append(sc.Bodies, &Body{
			ID:       b.ID,
			Name:     b.Name,
			RadiusKm: b.RadiusKm,
			Position: Vec3{X: b.Position.X, Y: b.Position.Y, Z: b.Position.Z},
		})
	}

	nodes := make(map[string]*Node)
	for _, n := range raw.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node without id", ErrScenarioInvalid)
		}
		if _, dup := nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrScenarioInvalid, n.ID)
		}
		kind, err := parseNodeKind(n.Kind)
		if err != nil {
			return nil, err
		}
		node := &Node{
			ID:             n.ID,
			Name:           n.Name,
			Kind:           kind,
			Visible:        n.Visible == nil || *n.Visible,
			CommandStation: n.CommandStation,
			Platform:       platformFor(n),
		}
		nodes[n.ID] = node
		sc.Nodes = append(sc.Nodes, node)
	}

	antennaIDs := make(map[string]struct{})
	for _, a := range raw.Antennas {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: antenna without id", ErrScenarioInvalid)
		}
		if _, dup := antennaIDs[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate antenna %q", ErrScenarioInvalid, a.ID)
		}
		antennaIDs[a.ID] = struct{}{}
		owner, ok := nodes[a.Owner]
		if !ok {
			return nil, fmt.Errorf("%w: antenna %q references unknown node %q", ErrScenarioInvalid, a.ID, a.Owner)
		}
		sc.Antennas = append(sc.Antennas, &Antenna{
			ID:           a.ID,
			Owner:        owner,
			Powered:      a.Powered == nil || *a.Powered,
			CanTarget:    a.Target != "",
			Target:       a.Target,
			RangeKm:      a.RangeKm,
			ConeAngleDeg: a.ConeAngleDeg,
		})
	}

	if raw.MissionControl != "" {
		mc, ok := nodes[raw.MissionControl]
		if !ok {
			return nil, fmt.Errorf("%w: mission control %q is not a node", ErrScenarioInvalid, raw.MissionControl)
		}
		sc.MissionControl = mc
	}

	return sc, nil
}

// Apply registers the scenario's bodies and mission control on the network.
func (sc *Scenario) Apply(n *Network) error {
	for _, b := range sc.Bodies {
		if err := n.AddBody(b); err != nil {
			return err
		}
	}
	if sc.MissionControl != nil {
		n.SetMissionControl(sc.MissionControl)
	}
	return nil
}

func parseNodeKind(s string) (NodeKind, error) {
	switch NodeKind(s) {
	case "", NodeSatellite:
		return NodeSatellite, nil
	case NodeGroundStation, NodeMissionControl:
		return NodeKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown node kind %q", ErrScenarioInvalid, s)
	}
}

func platformFor(n nodeYAML) *model.PlatformDefinition {
	const kmToM = 1000.0
	p := &model.PlatformDefinition{
		ID:   "platform-" + n.ID,
		Name: n.Name,
		Coordinates: model.Motion{
			X: n.Position.X * kmToM,
			Y: n.Position.Y * kmToM,
			Z: n.Position.Z * kmToM,
		},
	}
	if len(n.TLE) == 2 {
		p.MotionSource = model.MotionSourceTLE
		p.TLE1, p.TLE2 = n.TLE[0], n.TLE[1]
	}
	return p
}
