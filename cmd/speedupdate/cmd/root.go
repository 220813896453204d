// Package cmd implements the speedupdate command-line tool: a
// repository verb for producers (init/build/publish) and a workspace
// verb for consumers (status/update/check), the same two-binary-worth
// -of-surface-as-one-tool shape mixer's single root command gives
// bundle/build/repo/version management.
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/clearlinux/speedupdate/log"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

var configFile string
var rootFlags *pflag.FlagSet

// RootCmd is the base command when speedupdate is called without a
// subcommand.
var RootCmd = &cobra.Command{
	Use:   "speedupdate",
	Short: "Versioned binary differential-update distribution tool",
	Long: `speedupdate builds, publishes, and applies versioned binary
differential updates. The "repository" verb manages a content
repository (producer side); the "workspace" verb applies repository
content to a local tree (consumer side).`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Print(cmd.UsageString())
	},
}

var rootCmdFlags = struct {
	verbose bool
	logFile string
}{}

// Execute runs the root command. Called once by main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "speedupdate.conf to load defaults from")
	RootCmd.PersistentFlags().BoolVar(&rootCmdFlags.verbose, "verbose", false, "enable verbose logging")
	RootCmd.PersistentFlags().StringVar(&rootCmdFlags.logFile, "log-file", "", "write log output to this file instead of stderr")

	rootFlags = RootCmd.PersistentFlags()

	cobra.OnInitialize(func() {
		if rootCmdFlags.verbose {
			log.SetLogLevel(log.LevelVerbose)
		}
		if rootCmdFlags.logFile != "" {
			if _, err := log.SetOutputFilename(rootCmdFlags.logFile); err != nil {
				fail(err)
			}
		}
	})
}

// fail logs err through the CLI tag and exits non-zero, the same
// "structured error reaches the user, then os.Exit(1)" shape as the
// teacher's fail/failf.
func fail(err error) {
	log.Error(log.CLI, "%s", err)
	os.Exit(1)
}

func failf(format string, a ...interface{}) {
	fail(errors.Errorf(format, a...))
}

func wrap(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, a...)
}
