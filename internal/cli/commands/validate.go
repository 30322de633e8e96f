package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sanreport/pkg/analyzer"
	"github.com/ccollicutt/sanreport/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a sanreport configuration file without running analysis.

Checks:
  - YAML or TOML syntax
  - Required fields
  - Strip and relevant trace pattern validity
  - Webhook settings
  - Job log existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	_, _ = fmt.Fprintf(out, "\nConfiguration valid!\n")
	_, _ = fmt.Fprintf(out, "  Codebase marker:      %s\n", cfg.CodebaseMarker)
	if cfg.LogBase != "" {
		_, _ = fmt.Fprintf(out, "  Log base:             %s (%s)\n", cfg.LogBase, cfg.LogFileName)
	}
	_, _ = fmt.Fprintf(out, "  Jobs:                 %d\n", len(cfg.Jobs))
	_, _ = fmt.Fprintf(out, "  Strip patterns:       %d\n", len(cfg.StripPatterns))
	_, _ = fmt.Fprintf(out, "  Unterminated sections: %s\n", cfg.UnterminatedSections)
	_, _ = fmt.Fprintf(out, "  Webhooks:             %d\n", len(cfg.Webhooks))

	// List error names with relevant trace patterns
	_, _ = fmt.Fprintf(out, "\nRelevant traces:\n")
	for _, name := range cfg.TraceTable().Names() {
		_, _ = fmt.Fprintf(out, "  - %s (%d pattern(s))\n", name, len(cfg.TraceTable().Lookup(name)))
	}

	// Check if job logs exist (warnings only)
	jobs, err := analyzer.JobsFromConfig(cfg)
	switch {
	case err != nil:
		_, _ = fmt.Fprintf(out, "\nWarning: Error collecting job logs: %v\n", err)
	case len(jobs) == 0:
		_, _ = fmt.Fprintf(out, "\nWarning: No job logs found\n")
	default:
		_, _ = fmt.Fprintf(out, "\nJob logs found: %d\n", len(jobs))
		for _, job := range jobs {
			_, _ = fmt.Fprintf(out, "  - %s: %d file(s)\n", job.Package, len(job.Sources))
		}
	}

	return nil
}
