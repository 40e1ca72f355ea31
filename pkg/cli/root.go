package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd is the `mozilla-linux-pkg-manager` command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mozilla-linux-pkg-manager",
		Short: "`mozilla-linux-pkg-manager` manages Mozilla's Linux packages",
		Long:  "`mozilla-linux-pkg-manager` manages Mozilla's Linux packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	// "clean-up"
	rootCmd.AddCommand(newCleanupCmd())

	return rootCmd
}
