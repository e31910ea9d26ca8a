package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	labelColor = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
)

func printSummary(w io.Writer, s runSummary) {
	status := okColor.Sprint("complete")
	if s.Interrupted {
		status = warnColor.Sprint("interrupted")
	}
	labelColor.Fprintf(w, "netview render ")
	fmt.Fprintf(w, "%s\n", status)

	row := func(name string, value any) {
		fmt.Fprintf(w, "  %-16s %v\n", name, value)
	}
	row("frames", s.Frames)
	row("images", len(s.Images))
	row("markers", s.Markers)
	row("edges", s.Stats.Edges)
	row("active lines", s.Stats.ActiveLines)
	row("path edges", s.Stats.PathEdges)
	row("cones", s.Stats.Cones)
	row("filter", s.Filter)
	row("filter reloads", s.Reloads)
	row("retired nodes", s.Retired)
	row("renderables", fmt.Sprintf("%d created, %d destroyed", s.Created, s.Destroyed))

	if s.Live != 0 {
		warnColor.Fprintf(w, "  %d renderables still live after detach\n", s.Live)
	}
}
