package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the filesage command tree
func NewRootCommand() *cobra.Command {
	globals := &GlobalFlags{}
	v := newViper()

	rootCmd := &cobra.Command{
		Use:   "filesage",
		Short: "Verify that files are byte-identical",
		Long: `filesage verifies that a local file is byte-identical to another local
file or to a file served over HTTP(S), using an ordered list of comparison
policies from cheap metadata checks to full downloads.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindEnv(cmd, v)
		},
	}

	// Add global flags
	AddGlobalFlags(rootCmd, globals)

	// Add commands
	rootCmd.AddCommand(NewCompareCommand(globals))
	rootCmd.AddCommand(NewBatchCommand(globals))
	rootCmd.AddCommand(NewConfigCommand(globals))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
