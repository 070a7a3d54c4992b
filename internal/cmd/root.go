package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for cognitive
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cognitive",
		Short: "Dual-mode AI analysis and requirements tooling",
		Long: `Cognitive runs a project's tests and hands the results to an AI workflow
in one of three modes:

  ide  write context files (.ai/) for the assistant in your editor
  api  call a model provider directly and return its suggestions
  ci   produce a pass/fail report for pipelines

The mode is detected from the environment unless --mode or AI_MODE is set.

It also validates requirement hierarchies (Vision > Business Value > Epic >
Feature > Story > Task), generates AI prompt artifacts for them, and audits
which requirements are covered by tests.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the error
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .cognitive/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewDispatchCommand())
	cmd.AddCommand(NewReqCommand())
	cmd.AddCommand(NewTestCommand())
	cmd.AddCommand(NewAuditCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
