package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sureweave/asure/internal/node"
	"github.com/sureweave/asure/internal/ops"
	"github.com/sureweave/asure/internal/store"
)

// ShowCommand replays a stored version, one node per line, in the
// surefile's own depth-first order.
type ShowCommand struct {
	Store   string
	Version string
}

var showCommand *ShowCommand
var argShowVersion string

var showCmd = &cobra.Command{
	Use:   "show <store>",
	Short: "Print a stored version, one entry per line",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one positional argument {store}, got %d", len(args))
		}
		showCommand = &ShowCommand{Store: args[0], Version: argShowVersion}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = showCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	f := showCmd.Flags()
	f.StringVar(&argShowVersion, "version", "latest", `"latest", "prior", or a delta number`)
}

func (c *ShowCommand) Run(w, log Output) (int, error) {
	st, err := store.Parse(c.Store)
	if err != nil {
		return 2, err
	}

	spec, err := parseVersionSpec(c.Version)
	if err != nil {
		return 2, err
	}

	depth := 0
	err = ops.Show(st, spec, func(n node.Node) error {
		switch {
		case n.IsEnter():
			_, err := w.Printfln("%s%s/", strings.Repeat("  ", depth), n.Name)
			depth++
			return err
		case n.IsFile():
			_, err := w.Printfln("%s%s\t%s", strings.Repeat("  ", depth), n.Name, formatAtts(n))
			return err
		case n.IsLeave():
			depth--
			return nil
		default: // Sep
			return nil
		}
	})
	if err != nil {
		return 2, err
	}
	return 0, nil
}

func formatAtts(n node.Node) string {
	var parts []string
	for _, k := range n.Atts.Keys() {
		parts = append(parts, k+"="+n.Atts[k])
	}
	return strings.Join(parts, " ")
}
