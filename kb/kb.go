package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/constellation-netview/core"
)

var (
	// ErrNodeExists indicates a node with the same ID is already registered.
	ErrNodeExists = errors.New("node already exists")
	// ErrNodeNotFound indicates a requested node was not found.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodeInvalid indicates a node failed validation.
	ErrNodeInvalid = errors.New("invalid node")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventNodeRegistered EventType = iota
	EventNodeUnregistered
)

// Event is emitted to subscribers when a node joins or leaves.
type Event struct {
	Type EventType
	Node *core.Node
}

// KnowledgeBase is the thread-safe registry of live network nodes.
type KnowledgeBase struct {
	mu sync.RWMutex

	nodes map[string]*core.Node

	nextSub int
	subs    map[int]func(Event)
	subIDs  []int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		nodes: make(map[string]*core.Node),
		subs:  make(map[int]func(Event)),
	}
}

// RegisterNode adds a node. It returns an error if the ID already exists.
func (kb *KnowledgeBase) RegisterNode(n *core.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: node must have an ID", ErrNodeInvalid)
	}

	kb.mu.Lock()
	if _, exists := kb.nodes[n.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNodeExists, n.ID)
	}
	kb.nodes[n.ID] = n
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventNodeRegistered, Node: n})
	return nil
}

// UnregisterNode removes a node by ID and notifies subscribers with the
// removed *core.Node so they can drop anything that references it.
func (kb *KnowledgeBase) UnregisterNode(id string) error {
	kb.mu.Lock()
	n, ok := kb.nodes[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	delete(kb.nodes, id)
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, Event{Type: EventNodeUnregistered, Node: n})
	return nil
}

// GetNode returns the node with the given ID, or nil if not found.
func (kb *KnowledgeBase) GetNode(id string) *core.Node {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.nodes[id]
}

// ListNodes returns a snapshot of all nodes sorted by ID.
func (kb *KnowledgeBase) ListNodes() []*core.Node {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*core.Node, 0, len(kb.nodes))
	for _, n := range kb.nodes {
		res = append(res, n)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// CommandStations returns the registered nodes flagged as command stations,
// sorted by ID.
func (kb *KnowledgeBase) CommandStations() []*core.Node {
	all := kb.ListNodes()
	out := all[:0]
	for _, n := range all {
		if n.CommandStation {
			out = append(out, n)
		}
	}
	return out
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function that is safe to call more than once.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn
	kb.subIDs = append(kb.subIDs, id)

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if _, ok := kb.subs[id]; !ok {
			return
		}
		delete(kb.subs, id)
		for i, got := range kb.subIDs {
			if got == id {
				kb.subIDs = append(kb.subIDs[:i], kb.subIDs[i+1:]...)
				break
			}
		}
	}
}

// SubscribeUnregistered is a typed shortcut for unregister events.
func (kb *KnowledgeBase) SubscribeUnregistered(fn func(*core.Node)) (unsubscribe func()) {
	return kb.Subscribe(func(ev Event) {
		if ev.Type == EventNodeUnregistered {
			fn(ev.Node)
		}
	})
}

// SubscriberCount returns the number of live subscriptions.
func (kb *KnowledgeBase) SubscriberCount() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.subs)
}

func (kb *KnowledgeBase) snapshotSubsLocked() []func(Event) {
	out := make([]func(Event), 0, len(kb.subIDs))
	for _, id := range kb.subIDs {
		out = append(out, kb.subs[id])
	}
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
