package render

import (
	"github.com/gogpu/gg"

	"github.com/signalsfoundry/constellation-netview/core"
)

// Material names the shared look a backend applies to overlay geometry.
type Material string

// MaterialOrbitLines is the material the map view uses for orbit lines.
const MaterialOrbitLines Material = "orbit-lines"

// Renderable is a scene resource owned by the renderer. Destroy releases it
// in the host scene; a destroyed renderable is never touched again.
type Renderable interface {
	SetActive(active bool)
	SetWidth(width float64)
	SetMaterial(m Material)
	SetColor(c gg.RGBA)
	Destroy()
}

// Line is a pooled segment between two world positions (km).
type Line interface {
	Renderable
	SetEndpoints(a, b core.Vec3)
}

// Cone is a pooled cone from an apex to a circular base.
type Cone interface {
	Renderable
	SetShape(apex, baseCenter core.Vec3, baseRadiusKm float64)
}

// Backend instantiates renderables in the host scene.
type Backend interface {
	NewLine() Line
	NewCone() Cone
}

// pool keeps a slice of renderables sized to the current source count.
type pool[T Renderable] struct {
	items []T
	make  func() T
}

// resize makes len(items) == n. Trailing excess is destroyed and dropped;
// a shortfall is filled with fresh instances. A slot is never both
// destroyed and re-created by one call.
func (p *pool[T]) resize(n int) (created, destroyed int) {
	if n < 0 {
		n = 0
	}
	old := len(p.items)
	if n < old {
		for i := n; i < old; i++ {
			p.items[i].Destroy()
			var zero T
			p.items[i] = zero
		}
		p.items = p.items[:n]
		return 0, old - n
	}
	for i := old; i < n; i++ {
		p.items = append(p.items, p.make())
	}
	return n - old, 0
}

// destroyAll releases every element and empties the pool.
func (p *pool[T]) destroyAll() int {
	_, destroyed := p.resize(0)
	return destroyed
}

func (p *pool[T]) len() int { return len(p.items) }
