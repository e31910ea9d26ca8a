package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/constellation-netview/config"
	"github.com/signalsfoundry/constellation-netview/render"
)

func newFilterCmd() *cobra.Command {
	var settingsPath, statePath string

	resolveState := func() (string, error) {
		if statePath != "" {
			return statePath, nil
		}
		s, err := config.LoadSettings(settingsPath)
		if err != nil {
			return "", err
		}
		return s.StateFile, nil
	}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Inspect or change the persisted map filter",
	}
	cmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings TOML file naming the state file")
	cmd.PersistentFlags().StringVar(&statePath, "state", "", "state file holding MapFilter (overrides --settings)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective map filter and the flags derived from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveState()
			if err != nil {
				return err
			}
			node, err := loadState(path, func(err error) {
				warnColor.Fprintf(cmd.ErrOrStderr(), "state file %s is malformed (%v); using default\n", path, err)
			})
			if err != nil {
				return err
			}
			f, ok := filterFromNode(node)
			if !ok {
				warnColor.Fprintf(cmd.ErrOrStderr(), "stored MapFilter %q is invalid; using default\n", node.GetValue(render.MapFilterKey))
			}
			printFilter(cmd.OutOrStdout(), f)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <value>",
		Short: "Persist a map filter, e.g. \"Path, OmniDish\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFilter(args[0])
			if err != nil {
				return err
			}
			path, err := resolveState()
			if err != nil {
				return err
			}
			node, err := loadState(path, func(err error) {
				warnColor.Fprintf(cmd.ErrOrStderr(), "state file %s is malformed (%v); rewriting it\n", path, err)
			})
			if err != nil {
				return err
			}
			node.SetValue(render.MapFilterKey, f.String())
			if err := node.Save(path); err != nil {
				return fmt.Errorf("save %s: %w", path, err)
			}
			printFilter(cmd.OutOrStdout(), f)
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func printFilter(w io.Writer, f render.Filter) {
	labelColor.Fprintf(w, "%s: ", render.MapFilterKey)
	fmt.Fprintf(w, "%s\n", f)
	for _, flag := range []struct {
		name string
		on   bool
	}{
		{"show_omni", f.ShowOmni()},
		{"show_dish", f.ShowDish()},
		{"show_all", f.ShowAll()},
		{"show_path", f.ShowPath()},
	} {
		fmt.Fprintf(w, "  %-10s %s\n", flag.name, onOff(flag.on))
	}
}

func onOff(on bool) string {
	if on {
		return okColor.Sprint("on")
	}
	return dimColor.Sprint("off")
}
