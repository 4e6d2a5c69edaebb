package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sefcom/clusterutils/pkg/rbac"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the RBAC permissions needed to collect utilization",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, clients, err := options.collector()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		warnings, err := rbac.VerifyPermissions(cmd.Context(), clients.Core)
		for _, w := range warnings {
			fmt.Fprintf(out, "⚠️  %s\n", w)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "✅ All required permissions are granted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
