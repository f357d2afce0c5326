// Package commands provides the CLI commands for inkwell.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/inkwell-md/inkwell/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Inkwell - edit sessions for markdown content",
	Long: `Inkwell serves a local HTTP API for editing markdown documents:
validated saves with atomic file replacement, live preview compilation
and change notifications for open editors.

Run 'inkwell serve' to start the service, or 'inkwell check' to
batch-validate content files.`,
	Version:          Version,
	PersistentPreRun: initLogging,
	SilenceUsage:     true,
	SilenceErrors:    true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr instead of the log file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("inkwell %s (%s)\n", Version, BuildTime))

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}

// Execute runs the root command.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

// initLogging configures the global logger from the persistent flags.
// By default logs go to a file under /tmp so command output stays
// clean; --print-logs streams them to stderr instead.
func initLogging(cmd *cobra.Command, args []string) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(logLevel)
	if printLogs {
		cfg.Pretty = isatty.IsTerminal(os.Stderr.Fd())
	} else {
		cfg.Output = io.Discard
		cfg.LogToFile = true
	}
	logging.Init(cfg)
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
