// Command asure scans a directory tree, records its state as a weave
// or plain surefile, and reports what changed against a previous scan.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// global-variables used for passing values between cobra methods, the
// same shape as every subcommand's Run: cobra.Command.Run has no return
// value, so each command assigns exitCode/cmdError here instead.
var w Output
var log Output
var exitCode int
var cmdError error

var argJSONOutput bool

var rootCmd = &cobra.Command{
	Use:   "asure",
	Short: "Directory tree integrity scanner and change tracker",
	Long: `asure scans a directory tree, recording file identity, metadata,
and content hashes as a surefile, and later reports what changed by
rescanning and comparing against the stored state.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		w = &PlainOutput{Device: os.Stdout}
		log = &PlainOutput{Device: os.Stderr}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&argJSONOutput, "json", false, "emit machine-readable JSON instead of text")
	logrus.SetOutput(os.Stderr)
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	if cmdError != nil {
		if log != nil {
			log.Printfln("asure: %s", cmdError)
		}
		return exitCode
	}
	return exitCode
}
