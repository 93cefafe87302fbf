package main

import (
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the supplier dashboard for one owner",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := newAssessments(st).Dashboard(ctx, ownerFlags(cmd))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sum)
	},
}

var adminSummaryCmd = &cobra.Command{
	Use:   "admin-summary",
	Short: "Show the administrator summary across all records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := newAssessments(st).AdminSummary(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sum)
	},
}

func init() {
	dashboardCmd.Flags().String("user", "", "owning user id")
	dashboardCmd.Flags().String("company", "", "owning company id")
	rootCmd.AddCommand(dashboardCmd, adminSummaryCmd)
}
