package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/export"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/store"
)

// resolveFormat prefers --format and falls back to the file extension.
func resolveFormat(flag, path string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if path == "" {
		return export.FormatJSON, nil
	}
	return export.FormatFromPath(path)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records as JSON, YAML or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		output, _ := cmd.Flags().GetString("output")
		formatFlag, _ := cmd.Flags().GetString("format")
		status, _ := cmd.Flags().GetString("status")

		format, err := resolveFormat(formatFlag, output)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX && output == "" {
			return eris.New("xlsx export requires --output")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := newAssessments(st).List(ctx, store.RecordFilter{Status: model.Status(status)})
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrapf(err, "create %s", output)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		if err := export.Write(w, format, recs); err != nil {
			return err
		}

		zap.L().Info("records exported", zap.Int("count", len(recs)), zap.String("format", string(format)))
		if output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s.\n", len(recs), output)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import records from a JSON or YAML dump",
	Long:  "Upserts records by owner. Scores are re-aggregated from the stored points on the way in.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		formatFlag, _ := cmd.Flags().GetString("format")

		format, err := resolveFormat(formatFlag, args[0])
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		recs, err := export.Read(f, format)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := newAssessments(st).Import(ctx, recs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records.\n", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	exportCmd.Flags().String("format", "", "json, yaml or xlsx (default from --output extension, else json)")
	exportCmd.Flags().String("status", "", "only export records with this status")

	importCmd.Flags().String("format", "", "json or yaml (default from file extension)")

	rootCmd.AddCommand(exportCmd, importCmd)
}
