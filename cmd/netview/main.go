// Command netview renders the live network topology of a constellation
// scenario as a sequence of map overlay images.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "netview",
		Short:         "Render constellation network links, dish cones and station markers",
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(), newFilterCmd())
	return root
}
