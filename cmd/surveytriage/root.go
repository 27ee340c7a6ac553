package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for surveytriage.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surveytriage",
		Short: "Clean and enrich GOV.UK feedback survey responses",
		Long: `surveytriage prepares GOV.UK feedback survey exports for an "ok"/"none" classifier.

It replaces personal information in free-text comments with placeholder
tokens such as {{ EMAIL }}, classifies the page every response was submitted
from and enriches it with the owning organisations and browse sections
returned by the GOV.UK search API.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .surveytriage in current or home directory)")

	cmd.AddCommand(NewCleanCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewScrubCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
