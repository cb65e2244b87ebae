package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the edgefuzz tool.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edgefuzz",
		Short: "A coverage-guided mutational fuzzer.",
		Long:  `edgefuzz drives deterministic mutation strategies against a target, guided by edge coverage collected through a fork-server or trace-parse backend.`,
	}

	cmd.AddCommand(NewFuzzCommand())

	return cmd
}
