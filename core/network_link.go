package core

import (
	"fmt"
	"strings"
)

// LinkKind distinguishes the two antenna classes that can carry a link.
type LinkKind int

const (
	LinkUnknown LinkKind = iota // Default/unset
	LinkOmni                    // Omnidirectional, range limited
	LinkDish                    // Directional dish aimed at the peer or its body
)

func (k LinkKind) String() string {
	switch k {
	case LinkOmni:
		return "omni"
	case LinkDish:
		return "dish"
	default:
		return "unknown"
	}
}

// ParseLinkKind accepts the spelling produced by LinkKind.String.
func ParseLinkKind(s string) (LinkKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "omni":
		return LinkOmni, nil
	case "dish":
		return LinkDish, nil
	default:
		return LinkUnknown, fmt.Errorf("%w: unknown link kind %q", ErrLinkBadInput, s)
	}
}

// Link is a directed connection from an implicit source node to Target
// through the named antenna port.
type Link struct {
	Target *Node
	Port   string
	Kind   LinkKind
}

// Hop is one directed step of a routed path.
type Hop struct {
	From *Node
	To   *Node
	Kind LinkKind
}
