package main

import (
	"errors"

	"github.com/signalsfoundry/constellation-netview/config"
)

// loadState reads the persisted view node. A file that exists but does not
// decode is reported through malformed and replaced by an empty node, so the
// default map filter applies. I/O failures are returned.
func loadState(path string, malformed func(error)) (*config.Node, error) {
	node, err := config.LoadNode(path)
	if errors.Is(err, config.ErrNodeMalformed) {
		if malformed != nil {
			malformed(err)
		}
		return config.NewNode(), nil
	}
	return node, err
}
