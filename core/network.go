package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrLinkBadInput = errors.New("invalid link")
	ErrBodyExists   = errors.New("body already exists")
	ErrBodyBadInput = errors.New("invalid body")
)

// LinkHandler receives link add/remove notifications keyed by the source
// node and the directed link.
type LinkHandler func(source *Node, link Link)

// Network is the live topology: directed links between nodes, the bodies
// dishes can aim at, and the mission control node paths are routed to.
//
// Mutators notify subscribers synchronously on the calling goroutine, after
// the internal lock has been released, so handlers may read the network.
type Network struct {
	mu sync.RWMutex

	links          map[*Node][]Link
	bodies         map[string]*Body
	missionControl *Node

	added   listeners[LinkHandler]
	removed listeners[LinkHandler]
}

// NewNetwork creates an empty topology.
func NewNetwork() *Network {
	return &Network{
		links:  make(map[*Node][]Link),
		bodies: make(map[string]*Body),
	}
}

//
// ---------- Subscriptions ----------
//

// SubscribeLinkAdded registers fn for link-add events. It returns an
// unsubscribe function that is safe to call more than once.
func (n *Network) SubscribeLinkAdded(fn LinkHandler) (unsubscribe func()) {
	return n.added.add(fn)
}

// SubscribeLinkRemoved registers fn for link-remove events.
func (n *Network) SubscribeLinkRemoved(fn LinkHandler) (unsubscribe func()) {
	return n.removed.add(fn)
}

// SubscriberCount returns the number of live link subscriptions.
func (n *Network) SubscriberCount() int {
	return n.added.len() + n.removed.len()
}

//
// ---------- Links ----------
//

// AddLink inserts a directed link from source. Adding a link that is
// already present is a no-op and emits nothing.
func (n *Network) AddLink(source *Node, link Link) error {
	if source == nil || link.Target == nil || source == link.Target {
		return fmt.Errorf("%w: source and target must be distinct non-nil nodes", ErrLinkBadInput)
	}

	n.mu.Lock()
	for _, l := range n.links[source] {
		if l == link {
			n.mu.Unlock()
			return nil
		}
	}
	n.links[source] = append(n.links[source], link)
	n.mu.Unlock()

	n.added.each(func(fn LinkHandler) { fn(source, link) })
	return nil
}

// RemoveLink deletes a directed link from source.
func (n *Network) RemoveLink(source *Node, link Link) error {
	n.mu.Lock()
	if !n.removeLocked(source, link) {
		n.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s (%s)", ErrLinkNotFound, source, link.Target, link.Kind)
	}
	n.mu.Unlock()

	n.removed.each(func(fn LinkHandler) { fn(source, link) })
	return nil
}

// RemoveNode drops every link that starts or ends at node, emitting one
// remove event per dropped link.
func (n *Network) RemoveNode(node *Node) {
	if node == nil {
		return
	}

	type dropped struct {
		source *Node
		link   Link
	}
	var out []dropped

	n.mu.Lock()
	for _, l := range n.links[node] {
		out = append(out, dropped{source: node, link: l})
	}
	delete(n.links, node)
	for src, links := range n.links {
		kept := links[:0]
		for _, l := range links {
			if l.Target == node {
				out = append(out, dropped{source: src, link: l})
				continue
			}
			kept = append(kept, l)
		}
		if len(kept) == 0 {
			delete(n.links, src)
		} else {
			n.links[src] = kept
		}
	}
	if n.missionControl == node {
		n.missionControl = nil
	}
	n.mu.Unlock()

	for _, d := range out {
		n.removed.each(func(fn LinkHandler) { fn(d.source, d.link) })
	}
}

// Links returns a copy of the links leaving source.
func (n *Network) Links(source *Node) []Link {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Link(nil), n.links[source]...)
}

// HasLink reports whether the directed link exists.
func (n *Network) HasLink(source *Node, link Link) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, l := range n.links[source] {
		if l == link {
			return true
		}
	}
	return false
}

// LinkCount returns the number of directed links.
func (n *Network) LinkCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	total := 0
	for _, links := range n.links {
		total += len(links)
	}
	return total
}

func (n *Network) removeLocked(source *Node, link Link) bool {
	links := n.links[source]
	for i, l := range links {
		if l != link {
			continue
		}
		links = append(links[:i], links[i+1:]...)
		if len(links) == 0 {
			delete(n.links, source)
		} else {
			n.links[source] = links
		}
		return true
	}
	return false
}

//
// ---------- Bodies ----------
//

// AddBody registers a celestial body by ID.
func (n *Network) AddBody(b *Body) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("%w", ErrBodyBadInput)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.bodies[b.ID]; exists {
		return fmt.Errorf("%w: %q", ErrBodyExists, b.ID)
	}
	n.bodies[b.ID] = b
	return nil
}

// Body resolves a dish target to a known body.
func (n *Network) Body(id string) (*Body, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	b, ok := n.bodies[id]
	return b, ok
}

// Bodies returns all bodies sorted by ID.
func (n *Network) Bodies() []*Body {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Body, 0, len(n.bodies))
	for _, b := range n.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

//
// ---------- Routing ----------
//

// SetMissionControl selects the node every path is routed to.
func (n *Network) SetMissionControl(node *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.missionControl = node
}

// MissionControl returns the routing destination, or nil when unset.
func (n *Network) MissionControl() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.missionControl
}

// Path returns the fewest-hop route from observer to mission control over
// the current links. It returns nil when either end is unknown, the two are
// the same node, or no route exists.
func (n *Network) Path(observer *Node) []Hop {
	n.mu.RLock()
	defer n.mu.RUnlock()

	dest := n.missionControl
	if observer == nil || dest == nil || observer == dest {
		return nil
	}

	prev := map[*Node]Hop{observer: {}}
	queue := []*Node{observer}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range n.links[cur] {
			if _, seen := prev[l.Target]; seen {
				continue
			}
			prev[l.Target] = Hop{From: cur, To: l.Target, Kind: l.Kind}
			if l.Target == dest {
				return unwindPath(prev, observer, dest)
			}
			queue = append(queue, l.Target)
		}
	}
	return nil
}

func unwindPath(prev map[*Node]Hop, from, to *Node) []Hop {
	var hops []Hop
	for cur := to; cur != from; {
		h := prev[cur]
		hops = append(hops, h)
		cur = h.From
	}
	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	return hops
}
