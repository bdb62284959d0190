package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sureweave/asure/internal/ops"
	"github.com/sureweave/asure/internal/progress"
)

// ScanCommand records a directory's current state as a brand new
// version, with no hash carried forward from any prior scan.
type ScanCommand struct {
	Dir     string
	Store   string
	Tags    map[string]string
	Workers int
	Quiet   bool
}

var scanCommand *ScanCommand

var argScanStore string
var argScanTags []string
var argScanWorkers int
var argScanQuiet bool

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a directory and record a fresh version",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one positional argument {dir}, got %d", len(args))
		}

		tags, err := parseTags(argScanTags)
		if err != nil {
			return err
		}

		workers := argScanWorkers
		if workers <= 0 {
			if n, ok := EnvToInt("ASURE_WORKERS"); ok {
				workers = n
			} else {
				workers = CountCPUs()
			}
		}

		scanCommand = &ScanCommand{
			Dir:     args[0],
			Store:   argScanStore,
			Tags:    tags,
			Workers: workers,
			Quiet:   argScanQuiet,
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = scanCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	f := scanCmd.Flags()
	f.StringVar(&argScanStore, "store", "", "surefile or directory to write to (defaults to <dir>)")
	f.StringArrayVar(&argScanTags, "tag", nil, "key=value tag attached to the new version, may repeat")
	f.IntVar(&argScanWorkers, "workers", 0, "hashing goroutines (defaults to number of CPUs)")
	f.BoolVar(&argScanQuiet, "quiet", false, "suppress the progress line")
}

// Run executes the scan command, writing status to w and recovered
// per-file errors to log, and returns the process exit code to use.
func (c *ScanCommand) Run(w, log Output) (int, error) {
	st, err := resolveStore(c.Dir, c.Store)
	if err != nil {
		return 2, err
	}

	var meter *progress.Meter
	if !c.Quiet {
		meter = progress.New(progressWriter{w}, nil, 200*time.Millisecond)
	}

	if err := ops.Update(context.Background(), c.Dir, st, ops.UpdateOptions{
		CarryHashes: false,
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
	w.Println("scan complete")
	return 0, nil
}
