package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sureweave/asure/internal/compare"
	"github.com/sureweave/asure/internal/ops"
)

// CompareCommand scans a directory fresh and reports its differences
// against a store's latest version, without writing a new version.
type CompareCommand struct {
	Dir   string
	Store string
	JSON  bool
}

var compareCommand *CompareCommand

var argCompareStore string

var compareCmd = &cobra.Command{
	Use:   "compare <dir>",
	Short: "Report what changed since the last recorded version",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one positional argument {dir}, got %d", len(args))
		}
		compareCommand = &CompareCommand{
			Dir:   args[0],
			Store: argCompareStore,
			JSON:  argJSONOutput,
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = compareCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	f := compareCmd.Flags()
	f.StringVar(&argCompareStore, "store", "", "surefile or directory to compare against (defaults to <dir>)")
}

type changeJSON struct {
	Action string   `json:"action"`
	Entry  string   `json:"entry"`
	Path   string   `json:"path"`
	Attrs  []string `json:"attrs,omitempty"`
}

// Run streams every detected Change to w, one line each, and returns
// exit code 1 (not an error) when any difference was found, matching
// the diff(1) convention.
func (c *CompareCommand) Run(w, log Output) (int, error) {
	st, err := resolveStore(c.Dir, c.Store)
	if err != nil {
		return 2, err
	}

	found := false
	err = ops.Compare(c.Dir, st, compare.Options{}, func(ch compare.Change) error {
		found = true
		if c.JSON {
			b, err := json.Marshal(changeJSON{
				Action: ch.Kind.String(),
				Entry:  ch.Entry.String(),
				Path:   ch.Path,
				Attrs:  ch.Attrs,
			})
			if err != nil {
				return err
			}
			_, err = w.Println(string(b))
			return err
		}
		if len(ch.Attrs) > 0 {
			_, err := w.Printfln("%s %s %s (%s)", ch.Kind, ch.Entry, ch.Path, joinAttrs(ch.Attrs))
			return err
		}
		_, err := w.Printfln("%s %s %s", ch.Kind, ch.Entry, ch.Path)
		return err
	})
	if err != nil {
		return 2, err
	}
	if found {
		return 1, nil
	}
	return 0, nil
}

func joinAttrs(attrs []string) string {
	out := attrs[0]
	for _, a := range attrs[1:] {
		out += ", " + a
	}
	return out
}
