package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/assessment"
	"github.com/sells-group/esg-cli/internal/model"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Re-aggregate stored records",
	Long:  "Re-aggregates every record's category scores. With --recompute, sub-section points are recalculated from stored data first, replacing manual overrides.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		recompute, _ := cmd.Flags().GetBool("recompute")
		status, _ := cmd.Flags().GetString("status")
		if concurrency == 0 {
			concurrency = cfg.Assessment.RescoreConcurrency
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := newAssessments(st).RescoreAll(ctx, assessment.RescoreOptions{
			Concurrency:     concurrency,
			RecomputePoints: recompute,
			Status:          model.Status(status),
		})
		if err != nil {
			return err
		}

		zap.L().Info("rescore complete",
			zap.Int64("succeeded", res.Succeeded),
			zap.Int64("failed", res.Failed),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Rescored %d records (%d failed).\n", res.Succeeded, res.Failed)
		return nil
	},
}

func init() {
	rescoreCmd.Flags().Int("concurrency", 0, "parallel record updates (default from config)")
	rescoreCmd.Flags().Bool("recompute", false, "recalculate sub-section points from stored data")
	rescoreCmd.Flags().String("status", "", "only rescore records with this status")
	rootCmd.AddCommand(rescoreCmd)
}
