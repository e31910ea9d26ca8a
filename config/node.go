package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// ErrNodeMalformed marks a node file that exists but is not valid TOML.
var ErrNodeMalformed = errors.New("malformed config node")

// Node is a flat persisted configuration section: string keys to scalar
// TOML values. Non-string values are kept as decoded and rendered with
// fmt when read back.
type Node struct {
	values map[string]any
}

// NewNode returns an empty node.
func NewNode() *Node {
	return &Node{values: make(map[string]any)}
}

// DecodeNode reads a TOML document into a node.
func DecodeNode(r io.Reader) (*Node, error) {
	n := NewNode()
	if _, err := toml.NewDecoder(r).Decode(&n.values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNodeMalformed, err)
	}
	return n, nil
}

// LoadNode reads the node stored at path. A missing file yields an empty
// node. A file that does not decode returns an error wrapping
// ErrNodeMalformed; other errors are I/O failures.
func LoadNode(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewNode(), nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeNode(bytes.NewReader(data))
}

// HasValue reports whether key is set.
func (n *Node) HasValue(key string) bool {
	if n == nil {
		return false
	}
	_, ok := n.values[key]
	return ok
}

// GetValue returns the value for key as a string, or "" when unset.
func (n *Node) GetValue(key string) string {
	if n == nil {
		return ""
	}
	switch v := n.values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SetValue stores value under key, replacing any previous value.
func (n *Node) SetValue(key, value string) {
	if n.values == nil {
		n.values = make(map[string]any)
	}
	n.values[key] = value
}

// Keys returns the set keys in sorted order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode writes the node as TOML.
func (n *Node) Encode(w io.Writer) error {
	values := map[string]any{}
	if n != nil && n.values != nil {
		values = n.values
	}
	return toml.NewEncoder(w).Encode(values)
}

// Save writes the node to path via a temporary file and rename so that a
// watcher never observes a half-written file.
func (n *Node) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := n.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("encode config node: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
