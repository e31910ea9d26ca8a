package render

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/signalsfoundry/constellation-netview/core"
)

const propertyNodes = 5

// op is a decoded random operation against the renderer.
type op struct {
	kind int // 0 add link, 1 remove link, 2 unregister, 3 reconcile
	a, b int
	link core.LinkKind
}

func decodeOp(v int) op {
	o := op{
		kind: v % 4,
		a:    (v / 4) % propertyNodes,
		b:    (v / 20) % propertyNodes,
		link: core.LinkOmni,
	}
	if (v/100)%2 == 1 {
		o.link = core.LinkDish
	}
	return o
}

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return parameters
}

func propertyNodeSet() []*core.Node {
	nodes := make([]*core.Node, propertyNodes)
	for i := range nodes {
		nodes[i] = placedNode(string(rune('a'+i)), float64(i))
	}
	return nodes
}

func snapshot(s *EdgeSet) []Edge { return s.Edges() }

func sameEdges(x, y []Edge) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !x[i].Equal(y[i]) {
			return false
		}
	}
	return true
}

func TestEdgeSetProperties(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("adding a link twice equals adding it once", prop.ForAll(
		func(seed []int, extra int) bool {
			nodes := propertyNodeSet()
			once, twice := NewEdgeSet(), NewEdgeSet()
			for _, v := range seed {
				o := decodeOp(v)
				if o.a == o.b {
					continue
				}
				e := Edge{A: nodes[o.a], B: nodes[o.b], Kind: o.link}
				once.Add(e)
				twice.Add(e)
				twice.Add(Edge{A: e.B, B: e.A, Kind: e.Kind})
			}
			o := decodeOp(extra)
			if o.a != o.b {
				e := Edge{A: nodes[o.a], B: nodes[o.b], Kind: o.link}
				once.Add(e)
				twice.Add(e)
				twice.Add(e)
			}
			return sameEdges(snapshot(once), snapshot(twice))
		},
		gen.SliceOf(gen.IntRange(0, 199)),
		gen.IntRange(0, 199),
	))

	properties.Property("add then remove restores the prior set", prop.ForAll(
		func(seed []int, extra int) bool {
			nodes := propertyNodeSet()
			s := NewEdgeSet()
			for _, v := range seed {
				o := decodeOp(v)
				if o.a != o.b {
					s.Add(Edge{A: nodes[o.a], B: nodes[o.b], Kind: o.link})
				}
			}
			o := decodeOp(extra)
			if o.a == o.b {
				return true
			}
			e := Edge{A: nodes[o.a], B: nodes[o.b], Kind: o.link}
			if s.Contains(e) {
				// Already present: the add is a no-op, so only check idempotence.
				before := snapshot(s)
				s.Add(e)
				return sameEdges(before, snapshot(s))
			}
			before := snapshot(s)
			s.Add(e)
			s.Remove(e)
			return sameEdges(before, snapshot(s))
		},
		gen.SliceOf(gen.IntRange(0, 199)),
		gen.IntRange(0, 199),
	))

	properties.Property("unregister leaves no edge touching the node", prop.ForAll(
		func(seed []int, victim int) bool {
			nodes := propertyNodeSet()
			s := NewEdgeSet()
			for _, v := range seed {
				o := decodeOp(v)
				if o.a != o.b {
					s.Add(Edge{A: nodes[o.a], B: nodes[o.b], Kind: o.link})
				}
			}
			n := nodes[victim]
			s.RemoveNode(n)
			for _, e := range s.Edges() {
				if e.Touches(n) {
					return false
				}
			}
			// The index must agree with the slice after compaction.
			for _, e := range s.Edges() {
				if !s.Contains(e) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 199)),
		gen.IntRange(0, propertyNodes-1),
	))

	properties.TestingRun(t)
}

func TestRendererPoolSizingProperty(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("pooled lines always match the edge count after Tick", prop.ForAll(
		func(ops []int) bool {
			net := core.NewNetwork()
			registry := newFakeRegistry()
			backend := &fakeBackend{}
			r, err := Attach(Collaborators{
				Network: net,
				Nodes:   registry,
				Devices: &fakeDevices{},
				Backend: backend,
			})
			if err != nil {
				return false
			}
			defer r.Detach()

			nodes := propertyNodeSet()
			for i, v := range ops {
				o := decodeOp(v)
				switch o.kind {
				case 0:
					if o.a != o.b {
						_ = net.AddLink(nodes[o.a], core.Link{Target: nodes[o.b], Kind: o.link})
					}
				case 1:
					_ = net.RemoveLink(nodes[o.a], core.Link{Target: nodes[o.b], Kind: o.link})
				case 2:
					net.RemoveNode(nodes[o.a])
					registry.unregister(nodes[o.a])
				case 3:
					if err := r.Tick(context.Background(), uint64(i)); err != nil {
						return false
					}
					if backend.liveLines() != r.Edges().Len() || r.Stats().Lines != r.Edges().Len() {
						return false
					}
				}
			}

			if err := r.Tick(context.Background(), uint64(len(ops))); err != nil {
				return false
			}
			if backend.liveLines() != r.Edges().Len() {
				return false
			}
			r.Detach()
			return backend.liveLines() == 0
		},
		gen.SliceOf(gen.IntRange(0, 199)),
	))

	properties.TestingRun(t)
}
