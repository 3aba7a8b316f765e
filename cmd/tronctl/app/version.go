package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/tron-node-provider/services/providers"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(_ *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cliName, providers.Version)
		},
	}
}
