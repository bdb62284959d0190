package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sureweave/asure/internal/ops"
	"github.com/sureweave/asure/internal/progress"
)

// UpdateCommand rescans a directory, carrying forward sha1 hashes from
// the store's latest version for files that look unchanged, and records
// the result as a new version.
type UpdateCommand struct {
	Dir     string
	Store   string
	Tags    map[string]string
	Workers int
	Quiet   bool
}

var updateCommand *UpdateCommand

var argUpdateStore string
var argUpdateTags []string
var argUpdateWorkers int
var argUpdateQuiet bool

var updateCmd = &cobra.Command{
	Use:   "update <dir>",
	Short: "Rescan a directory, carrying hashes forward where unchanged",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one positional argument {dir}, got %d", len(args))
		}

		tags, err := parseTags(argUpdateTags)
		if err != nil {
			return err
		}

		workers := argUpdateWorkers
		if workers <= 0 {
			if n, ok := EnvToInt("ASURE_WORKERS"); ok {
				workers = n
			} else {
				workers = CountCPUs()
			}
		}

		updateCommand = &UpdateCommand{
			Dir:     args[0],
			Store:   argUpdateStore,
			Tags:    tags,
			Workers: workers,
			Quiet:   argUpdateQuiet,
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = updateCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	f := updateCmd.Flags()
	f.StringVar(&argUpdateStore, "store", "", "surefile or directory to update (defaults to <dir>)")
	f.StringArrayVar(&argUpdateTags, "tag", nil, "key=value tag attached to the new version, may repeat")
	f.IntVar(&argUpdateWorkers, "workers", 0, "hashing goroutines (defaults to number of CPUs)")
	f.BoolVar(&argUpdateQuiet, "quiet", false, "suppress the progress line")
}

func (c *UpdateCommand) Run(w, log Output) (int, error) {
	st, err := resolveStore(c.Dir, c.Store)
	if err != nil {
		return 2, err
	}

	var meter *progress.Meter
	if !c.Quiet {
		meter = progress.New(progressWriter{w}, nil, 200*time.Millisecond)
	}

	if err := ops.Update(context.Background(), c.Dir, st, ops.UpdateOptions{
		CarryHashes: true,
		Tags:        c.Tags,
		Workers:     c.Workers,
		Meter:       meter,
	}); err != nil {
		if meter != nil {
			meter.Finish()
		}
		return 1, err
	}

	if meter != nil {
		meter.Finish()
	}
	w.Println("update complete")
	return 0, nil
}
