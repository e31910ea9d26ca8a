// Package raster is a software scene that backs the network overlay with
// gg drawing primitives and writes frames as PNG images.
package raster

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg"
	"github.com/google/uuid"

	"github.com/signalsfoundry/constellation-netview/core"
	"github.com/signalsfoundry/constellation-netview/render"
)

// coneFillAlpha scales a cone's color alpha for its translucent fill.
const coneFillAlpha = 0.18

// Scene owns every line and cone handed to the renderer and tracks them
// independently, so leaked handles show up in Live.
type Scene struct {
	mu sync.Mutex

	lines   []*line
	cones   []*cone
	byID    map[uuid.UUID]struct{}
	markers []marker

	created, destroyed int
}

var (
	_ render.Backend      = (*Scene)(nil)
	_ render.MarkerDrawer = (*Scene)(nil)
)

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{byID: make(map[uuid.UUID]struct{})}
}

// NewLine implements render.Backend.
func (s *Scene) NewLine() render.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &line{element: s.newElementLocked()}
	s.lines = append(s.lines, l)
	return l
}

// NewCone implements render.Backend.
func (s *Scene) NewCone() render.Cone {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &cone{element: s.newElementLocked()}
	s.cones = append(s.cones, c)
	return c
}

func (s *Scene) newElementLocked() element {
	id := uuid.New()
	s.byID[id] = struct{}{}
	s.created++
	return element{id: id, scene: s, width: 1, color: gg.Black}
}

func (s *Scene) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	s.destroyed++
}

// Live returns the number of handles created and not yet destroyed.
func (s *Scene) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Counts returns lifetime created and destroyed totals.
func (s *Scene) Counts() (created, destroyed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, s.destroyed
}

// DrawMarker implements render.MarkerDrawer. Markers are queued and painted
// by the next Draw.
func (s *Scene) DrawMarker(n *core.Node, topLeft gg.Point, size float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, marker{node: n, topLeft: topLeft, size: size})
}

// Draw paints active cones, then active lines, then queued markers onto dc.
// Destroyed handles are dropped from the scene as a side effect and the
// marker queue is cleared.
func (s *Scene) Draw(dc *gg.Context, cam render.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cones = compact(s.cones)
	s.lines = compact(s.lines)

	for _, c := range s.cones {
		if c.active {
			if err := c.draw(dc, cam); err != nil {
				return fmt.Errorf("draw cone %s: %w", c.id, err)
			}
		}
	}
	for _, l := range s.lines {
		if l.active {
			if err := l.draw(dc, cam); err != nil {
				return fmt.Errorf("draw line %s: %w", l.id, err)
			}
		}
	}
	for _, m := range s.markers {
		if err := m.draw(dc); err != nil {
			return fmt.Errorf("draw marker %s: %w", m.node, err)
		}
	}
	s.markers = s.markers[:0]
	return nil
}

// RenderPNG draws the scene onto a fresh canvas and writes it to path.
func (s *Scene) RenderPNG(path string, width, height int, background gg.RGBA, cam render.Camera) error {
	dc := gg.NewContext(width, height)
	defer dc.Close()

	dc.ClearWithColor(background)
	if err := s.Draw(dc, cam); err != nil {
		return err
	}
	return dc.SavePNG(path)
}

type destroyable interface{ isDestroyed() bool }

func compact[T destroyable](items []T) []T {
	kept := items[:0]
	for _, it := range items {
		if !it.isDestroyed() {
			kept = append(kept, it)
		}
	}
	var zero T
	for i := len(kept); i < len(items); i++ {
		items[i] = zero
	}
	return kept
}
