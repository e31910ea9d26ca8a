package render

import (
	"fmt"

	"github.com/signalsfoundry/constellation-netview/core"
)

// Edge is the undirected rendering form of one or two opposing links
// between the same pair of nodes. Port is dropped.
type Edge struct {
	A, B *core.Node
	Kind core.LinkKind
}

// EdgeOf derives the edge for a directed link leaving source.
func EdgeOf(source *core.Node, link core.Link) Edge {
	return Edge{A: source, B: link.Target, Kind: link.Kind}
}

// Equal compares node identity regardless of order, plus kind.
func (e Edge) Equal(o Edge) bool {
	if e.Kind != o.Kind {
		return false
	}
	return (e.A == o.A && e.B == o.B) || (e.A == o.B && e.B == o.A)
}

// Touches reports whether n is either endpoint.
func (e Edge) Touches(n *core.Node) bool {
	return e.A == n || e.B == n
}

func (e Edge) String() string {
	return fmt.Sprintf("%s <-> %s (%s)", e.A, e.B, e.Kind)
}

type edgeKey struct {
	a, b *core.Node
	kind core.LinkKind
}

func (e Edge) key() edgeKey         { return edgeKey{a: e.A, b: e.B, kind: e.Kind} }
func (e Edge) reversedKey() edgeKey { return edgeKey{a: e.B, b: e.A, kind: e.Kind} }

// EdgeSet is an insertion-ordered set of edges. Iteration order is the
// order edges were first added, so a slot paired with an edge keeps that
// edge until something before it is removed.
//
// EdgeSet is not safe for concurrent use.
type EdgeSet struct {
	index map[edgeKey]int
	edges []Edge
}

// NewEdgeSet returns an empty set.
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{index: make(map[edgeKey]int)}
}

func (s *EdgeSet) find(e Edge) (int, bool) {
	if i, ok := s.index[e.key()]; ok {
		return i, true
	}
	i, ok := s.index[e.reversedKey()]
	return i, ok
}

// Add inserts e and reports whether the set changed.
func (s *EdgeSet) Add(e Edge) bool {
	if e.A == nil || e.B == nil {
		return false
	}
	if _, ok := s.find(e); ok {
		return false
	}
	s.index[e.key()] = len(s.edges)
	s.edges = append(s.edges, e)
	return true
}

// Remove deletes e (in either orientation) and reports whether it was
// present.
func (s *EdgeSet) Remove(e Edge) bool {
	i, ok := s.find(e)
	if !ok {
		return false
	}
	delete(s.index, s.edges[i].key())
	copy(s.edges[i:], s.edges[i+1:])
	s.edges[len(s.edges)-1] = Edge{}
	s.edges = s.edges[:len(s.edges)-1]
	for j := i; j < len(s.edges); j++ {
		s.index[s.edges[j].key()] = j
	}
	return true
}

// RemoveNode deletes every edge touching n and returns how many went.
func (s *EdgeSet) RemoveNode(n *core.Node) int {
	if n == nil {
		return 0
	}
	kept := s.edges[:0]
	removed := 0
	for _, e := range s.edges {
		if e.Touches(n) {
			delete(s.index, e.key())
			removed++
			continue
		}
		s.index[e.key()] = len(kept)
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.edges); i++ {
		s.edges[i] = Edge{}
	}
	s.edges = kept
	return removed
}

// Contains reports whether an equal edge is present.
func (s *EdgeSet) Contains(e Edge) bool {
	_, ok := s.find(e)
	return ok
}

// Len returns the number of edges.
func (s *EdgeSet) Len() int { return len(s.edges) }

// Edges returns a copy of the edges in insertion order.
func (s *EdgeSet) Edges() []Edge {
	return append([]Edge(nil), s.edges...)
}

// Clear empties the set.
func (s *EdgeSet) Clear() {
	clear(s.index)
	clear(s.edges)
	s.edges = s.edges[:0]
}
