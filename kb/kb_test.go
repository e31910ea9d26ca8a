package kb

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/constellation-netview/core"
)

func TestRegisterAndGetNode(t *testing.T) {
	kb := NewKnowledgeBase()
	n := &core.Node{ID: "sat1", Name: "LEO-Sat-1"}

	if err := kb.RegisterNode(n); err != nil {
		t.Fatalf("RegisterNode: %v", err)
	}
	if got := kb.GetNode("sat1"); got != n {
		t.Fatalf("GetNode returned %v, want the registered pointer", got)
	}
	if err := kb.RegisterNode(&core.Node{ID: "sat1"}); !errors.Is(err, ErrNodeExists) {
		t.Fatalf("duplicate RegisterNode error = %v, want ErrNodeExists", err)
	}
	if err := kb.RegisterNode(&core.Node{}); !errors.Is(err, ErrNodeInvalid) {
		t.Fatalf("RegisterNode without ID error = %v, want ErrNodeInvalid", err)
	}
}

func TestUnregisterNodeNotifiesSubscribers(t *testing.T) {
	kb := NewKnowledgeBase()
	n := &core.Node{ID: "relay"}
	_ = kb.RegisterNode(n)

	var gone []*core.Node
	unsubscribe := kb.SubscribeUnregistered(func(node *core.Node) {
		gone = append(gone, node)
	})
	defer unsubscribe()

	if err := kb.UnregisterNode("relay"); err != nil {
		t.Fatalf("UnregisterNode: %v", err)
	}
	if len(gone) != 1 || gone[0] != n {
		t.Fatalf("expected one unregister notification for relay, got %v", gone)
	}
	if kb.GetNode("relay") != nil {
		t.Fatalf("node still registered")
	}
	if err := kb.UnregisterNode("relay"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("second UnregisterNode error = %v, want ErrNodeNotFound", err)
	}
}

func TestSubscribeReceivesRegisterEvents(t *testing.T) {
	kb := NewKnowledgeBase()

	var events []Event
	kb.Subscribe(func(ev Event) { events = append(events, ev) })

	n := &core.Node{ID: "gs1"}
	_ = kb.RegisterNode(n)
	_ = kb.UnregisterNode("gs1")

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventNodeRegistered || events[1].Type != EventNodeUnregistered {
		t.Fatalf("unexpected event order: %+v", events)
	}
}

func TestUnsubscribeOutOfOrder(t *testing.T) {
	kb := NewKnowledgeBase()

	var first, second, third int
	unsubFirst := kb.Subscribe(func(Event) { first++ })
	unsubSecond := kb.Subscribe(func(Event) { second++ })
	kb.Subscribe(func(Event) { third++ })

	unsubFirst()
	unsubSecond()
	unsubFirst()

	_ = kb.RegisterNode(&core.Node{ID: "n"})
	if first != 0 || second != 0 || third != 1 {
		t.Fatalf("deliveries first=%d second=%d third=%d, want 0/0/1", first, second, third)
	}
	if got := kb.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}
}

func TestListNodesAndCommandStations(t *testing.T) {
	kb := NewKnowledgeBase()
	_ = kb.RegisterNode(&core.Node{ID: "gs-b", CommandStation: true})
	_ = kb.RegisterNode(&core.Node{ID: "sat"})
	_ = kb.RegisterNode(&core.Node{ID: "gs-a", CommandStation: true})

	all := kb.ListNodes()
	if len(all) != 3 || all[0].ID != "gs-a" || all[2].ID != "sat" {
		t.Fatalf("ListNodes not sorted by ID: %v", all)
	}

	stations := kb.CommandStations()
	if len(stations) != 2 || stations[0].ID != "gs-a" || stations[1].ID != "gs-b" {
		t.Fatalf("CommandStations = %v, want [gs-a gs-b]", stations)
	}
}
