package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFilterInvalid reports a map filter value that is neither a known flag
// name nor a number.
var ErrFilterInvalid = errors.New("invalid map filter")

// Filter is the bitmask selecting which overlay categories may render.
type Filter uint32

const (
	FilterNone     Filter = 0
	FilterOmni     Filter = 1
	FilterDish     Filter = 2
	FilterOmniDish Filter = FilterOmni | FilterDish
	FilterPlanet   Filter = 4
	FilterAny      Filter = 8
	FilterPath     Filter = 16
)

// DefaultFilter shows everything with both link kinds.
const DefaultFilter = FilterAny | FilterOmniDish

// named lists flag names from the largest value down; composite names come
// before their parts so they win the greedy match.
var named = []struct {
	name  string
	value Filter
}{
	{"Path", FilterPath},
	{"Any", FilterAny},
	{"Planet", FilterPlanet},
	{"OmniDish", FilterOmniDish},
	{"Dish", FilterDish},
	{"Omni", FilterOmni},
}

// ShowOmni reports whether omni edges are eligible. Both Any and Omni must be
// set.
func (f Filter) ShowOmni() bool {
	return f&(FilterAny|FilterOmni) == FilterAny|FilterOmni
}

// ShowDish reports whether dish edges are eligible.
func (f Filter) ShowDish() bool {
	return f&(FilterAny|FilterDish) == FilterAny|FilterDish
}

// ShowAll reports whether the Any bit is set.
func (f Filter) ShowAll() bool {
	return f&FilterAny == FilterAny
}

// ShowPath reports whether the active path is highlighted. Any implies it.
func (f Filter) ShowPath() bool {
	return f&FilterPath == FilterPath || f.ShowAll()
}

// String renders the symbolic form, e.g. "OmniDish, Any". Values with bits
// outside the named flags are rendered as a decimal number.
func (f Filter) String() string {
	if f == FilterNone {
		return "None"
	}
	rest := f
	var picked []string
	for _, n := range named {
		if rest&n.value == n.value {
			picked = append(picked, n.name)
			rest &^= n.value
		}
	}
	if rest != 0 {
		return strconv.FormatUint(uint64(f), 10)
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return strings.Join(picked, ", ")
}

// ParseFilter accepts a comma separated list of flag names (case-insensitive)
// or decimal numbers and returns their union.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FilterNone, fmt.Errorf("%w: empty value", ErrFilterInvalid)
	}

	var out Filter
	for _, part := range strings.Split(s, ",") {
		tok := strings.TrimSpace(part)
		if tok == "" {
			return FilterNone, fmt.Errorf("%w: empty flag in %q", ErrFilterInvalid, s)
		}
		if n, err := strconv.ParseUint(tok, 10, 32); err == nil {
			out |= Filter(n)
			continue
		}
		v, ok := lookupFlag(tok)
		if !ok {
			return FilterNone, fmt.Errorf("%w: unknown flag %q", ErrFilterInvalid, tok)
		}
		out |= v
	}
	return out, nil
}

func lookupFlag(tok string) (Filter, bool) {
	if strings.EqualFold(tok, "None") {
		return FilterNone, true
	}
	for _, n := range named {
		if strings.EqualFold(tok, n.name) {
			return n.value, true
		}
	}
	return FilterNone, false
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Filter) UnmarshalText(text []byte) error {
	v, err := ParseFilter(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
