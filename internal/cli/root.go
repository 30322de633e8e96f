// Package cli provides the command-line interface for sanreport.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sanreport/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sanreport",
		Short: "Count sanitizer findings in test logs",
		Long: `sanreport reads the output of tests built with AddressSanitizer,
ThreadSanitizer, LeakSanitizer and friends, and reports each distinct finding
once per package with the number of times it occurred.

A finding is identified by its package, its error name (e.g. "data race") and
the first frame of its relevant stack trace that belongs to the codebase
under test. Sanitizer output from concurrent processes may be interleaved, as
long as each process prefixes its lines consistently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
