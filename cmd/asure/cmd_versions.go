package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sureweave/asure/internal/store"
)

// VersionsCommand lists the versions recorded in a store.
type VersionsCommand struct {
	Store string
}

var versionsCommand *VersionsCommand
var argVersionsStore string

var versionsCmd = &cobra.Command{
	Use:   "versions <store>",
	Short: "List the versions recorded in a store",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one positional argument {store}, got %d", len(args))
		}
		versionsCommand = &VersionsCommand{Store: args[0]}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = versionsCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}

func (c *VersionsCommand) Run(w, log Output) (int, error) {
	st, err := store.Parse(c.Store)
	if err != nil {
		return 2, err
	}

	versions, err := st.Versions()
	if err != nil {
		return 2, err
	}
	if len(versions) == 0 {
		w.Println("(no versions recorded, or store does not track them individually)")
		return 0, nil
	}
	for _, v := range versions {
		if v.Name != "" {
			w.Printfln("%d\t%s\t%s", v.Spec.Number, v.Time.Format("2006-01-02 15:04:05"), v.Name)
		} else {
			w.Printfln("%d\t%s", v.Spec.Number, v.Time.Format("2006-01-02 15:04:05"))
		}
	}
	return 0, nil
}
