package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/esg-cli/internal/assessment"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/scoring"
	"github.com/sells-group/esg-cli/internal/store"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Edit and inspect ESG records",
	Long:  "Commands for patching sub-sections, submitting, reviewing and listing ESG self-assessment records.",
}

func ownerFlags(cmd *cobra.Command) model.Owner {
	user, _ := cmd.Flags().GetString("user")
	company, _ := cmd.Flags().GetString("company")
	return model.Owner{UserID: user, CompanyID: company}
}

// patchData reads the patch body from --data or --file. YAML is accepted in
// both, which covers JSON input.
func patchData(cmd *cobra.Command) (map[string]any, error) {
	raw, _ := cmd.Flags().GetString("data")
	path, _ := cmd.Flags().GetString("file")
	switch {
	case raw != "" && path != "":
		return nil, eris.New("use either --data or --file, not both")
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		raw = string(b)
	case raw == "":
		return nil, eris.New("--data or --file is required")
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, eris.Wrap(err, "parse patch data")
	}
	return data, nil
}

// -- record patch --

var recordPatchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Merge data into one sub-section of a record",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := patchData(cmd)
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		subsection, _ := cmd.Flags().GetString("subsection")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := newAssessments(st).Patch(ctx, scoring.Patch{
			Owner:      ownerFlags(cmd),
			Category:   model.Category(category),
			Subsection: subsection,
			Data:       data,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

// -- record get --

var recordGetCmd = &cobra.Command{
	Use:   "get [record-id]",
	Short: "Show a record by owner or id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := newAssessments(st)
		var rec *model.Record
		if len(args) == 1 {
			rec, err = svc.GetByID(ctx, args[0])
		} else {
			rec, err = svc.Get(ctx, ownerFlags(cmd))
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

// -- record submit --

var recordSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the owner's record for review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := newAssessments(st).Submit(ctx, ownerFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Record %s submitted.\n", rec.ID)
		return nil
	},
}

// -- record review --

var recordReviewCmd = &cobra.Command{
	Use:   "review <record-id>",
	Short: "Record a review outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		status, _ := cmd.Flags().GetString("status")
		comments, _ := cmd.Flags().GetString("comments")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := newAssessments(st).Review(ctx, args[0], model.Status(status), comments)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Record %s marked %s.\n", rec.ID, rec.Status)
		return nil
	},
}

// -- record override --

var recordOverrideCmd = &cobra.Command{
	Use:   "override <record-id>",
	Short: "Set a sub-section's points by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		category, _ := cmd.Flags().GetString("category")
		subsection, _ := cmd.Flags().GetString("subsection")
		points, _ := cmd.Flags().GetFloat64("points")
		remarks, _ := cmd.Flags().GetString("remarks")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := newAssessments(st).Override(ctx, assessment.OverrideRequest{
			RecordID:   args[0],
			Category:   model.Category(category),
			Subsection: subsection,
			Points:     points,
			Remarks:    remarks,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec.OverallScore)
	},
}

// -- record delete --

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := newAssessments(st).Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Record %s deleted.\n", args[0])
		return nil
	},
}

// -- record list --

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		owner := ownerFlags(cmd)

		recs, err := newAssessments(st).List(ctx, store.RecordFilter{
			Status:    model.Status(status),
			UserID:    owner.UserID,
			CompanyID: owner.CompanyID,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}

		if len(recs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No records found.")
			return nil
		}
		formatRecordList(cmd.OutOrStdout(), recs)
		return nil
	},
}

func init() {
	recordCmd.PersistentFlags().String("user", "", "owning user id")
	recordCmd.PersistentFlags().String("company", "", "owning company id")

	recordPatchCmd.Flags().String("category", "", "category (companyInfo, environment, social, quality, governance)")
	recordPatchCmd.Flags().String("subsection", "", "sub-section name (empty for companyInfo)")
	recordPatchCmd.Flags().String("data", "", "patch body as JSON or YAML")
	recordPatchCmd.Flags().String("file", "", "read the patch body from a JSON or YAML file")
	_ = recordPatchCmd.MarkFlagRequired("category")

	recordReviewCmd.Flags().String("status", "", "outcome: reviewed, approved or rejected")
	recordReviewCmd.Flags().String("comments", "", "review comments")
	_ = recordReviewCmd.MarkFlagRequired("status")

	recordOverrideCmd.Flags().String("category", "", "scored category")
	recordOverrideCmd.Flags().String("subsection", "", "sub-section name")
	recordOverrideCmd.Flags().Float64("points", 0, "points to assign")
	recordOverrideCmd.Flags().String("remarks", "", "reviewer remarks")
	_ = recordOverrideCmd.MarkFlagRequired("category")
	_ = recordOverrideCmd.MarkFlagRequired("subsection")
	_ = recordOverrideCmd.MarkFlagRequired("points")

	recordListCmd.Flags().String("status", "", "filter by status")
	recordListCmd.Flags().Int("limit", 50, "max records to show")
	recordListCmd.Flags().Int("offset", 0, "records to skip")

	recordCmd.AddCommand(recordPatchCmd, recordGetCmd, recordSubmitCmd, recordReviewCmd,
		recordOverrideCmd, recordDeleteCmd, recordListCmd)
	rootCmd.AddCommand(recordCmd)
}
