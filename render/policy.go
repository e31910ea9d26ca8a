package render

import (
	"github.com/gogpu/gg"

	"github.com/signalsfoundry/constellation-netview/core"
)

// Palette holds the overlay colors.
type Palette struct {
	Path     gg.RGBA
	Omni     gg.RGBA
	Dish     gg.RGBA
	Fallback gg.RGBA
	Cone     gg.RGBA
}

// DefaultPalette returns the map view colors: electric lime path, brown grey
// omni, amber dish, grey fallback and mid-gray cones.
func DefaultPalette() Palette {
	return Palette{
		Path:     gg.Hex("#a8ff04"),
		Omni:     gg.Hex("#8d8468"),
		Dish:     gg.Hex("#feb308"),
		Fallback: gg.Hex("#929591"),
		Cone:     gg.Hex("#808080"),
	}
}

// ActivePath is the set of edges on the highlighted route. The zero value
// is an empty path.
type ActivePath struct {
	edges map[edgeKey]struct{}
}

// NewActivePath collects the hops of a route into a lookup set.
func NewActivePath(hops []core.Hop) ActivePath {
	if len(hops) == 0 {
		return ActivePath{}
	}
	p := ActivePath{edges: make(map[edgeKey]struct{}, len(hops))}
	for _, h := range hops {
		if h.From == nil || h.To == nil {
			continue
		}
		p.edges[Edge{A: h.From, B: h.To, Kind: h.Kind}.key()] = struct{}{}
	}
	return p
}

// Len returns the number of distinct edges on the path.
func (p ActivePath) Len() int { return len(p.edges) }

// Contains reports whether e lies on the path in either direction.
func (p ActivePath) Contains(e Edge) bool {
	if len(p.edges) == 0 {
		return false
	}
	if _, ok := p.edges[e.key()]; ok {
		return true
	}
	_, ok := p.edges[e.reversedKey()]
	return ok
}

// Decision is the policy outcome for one edge.
type Decision struct {
	Active bool
	Color  gg.RGBA
}

// Policy maps an edge plus filter and path state to visibility and color.
type Policy struct {
	Palette Palette
}

// Decide evaluates the precedence rules. The highlighted path wins over
// every category filter and over node visibility.
func (p Policy) Decide(e Edge, f Filter, path ActivePath) Decision {
	if f.ShowPath() && path.Contains(e) {
		return Decision{Active: true, Color: p.Palette.Path}
	}
	return Decision{Active: visible(e, f), Color: p.kindColor(e.Kind)}
}

func visible(e Edge, f Filter) bool {
	switch {
	case e.Kind == core.LinkOmni && !f.ShowOmni():
		return false
	case e.Kind == core.LinkDish && !f.ShowDish():
		return false
	case e.A == nil || e.B == nil || !e.A.Visible || !e.B.Visible:
		return false
	}
	return true
}

func (p Policy) kindColor(k core.LinkKind) gg.RGBA {
	switch k {
	case core.LinkOmni:
		return p.Palette.Omni
	case core.LinkDish:
		return p.Palette.Dish
	default:
		return p.Palette.Fallback
	}
}
