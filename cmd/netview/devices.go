package main

import "github.com/signalsfoundry/constellation-netview/core"

// deviceList is the scenario's antenna inventory. Antennas of retired nodes
// are dropped so neither connectivity nor cones consider them again.
type deviceList struct {
	antennas []*core.Antenna
}

func newDeviceList(antennas []*core.Antenna) *deviceList {
	return &deviceList{antennas: append([]*core.Antenna(nil), antennas...)}
}

func (d *deviceList) Antennas() []*core.Antenna { return d.antennas }

func (d *deviceList) dropOwner(owner *core.Node) {
	kept := d.antennas[:0]
	for _, a := range d.antennas {
		if a.Owner != owner {
			kept = append(kept, a)
		}
	}
	clear(d.antennas[len(kept):])
	d.antennas = kept
}
