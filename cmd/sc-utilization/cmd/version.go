package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		version := rootCmd.Version
		if version == "" {
			version = "dev"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rootCmd.Name(), version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
