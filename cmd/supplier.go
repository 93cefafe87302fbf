package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/store"
)

var supplierCmd = &cobra.Command{
	Use:   "supplier",
	Short: "Manage supplier profiles",
}

var supplierGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Show a supplier profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := newSuppliers(st).Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

// changedFloat returns the flag value when it was set on the command line.
func changedFloat(flags *pflag.FlagSet, name string) *float64 {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetFloat64(name)
	return &v
}

func changedString(flags *pflag.FlagSet, name string) *string {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetString(name)
	return &v
}

var supplierScoresCmd = &cobra.Command{
	Use:   "scores <user-id>",
	Short: "Set supplier category scores; overall is recomputed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		patch := model.ESGScoresPatch{
			Environmental: changedFloat(flags, "environmental"),
			Social:        changedFloat(flags, "social"),
			Quality:       changedFloat(flags, "quality"),
			Governance:    changedFloat(flags, "governance"),
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		scores, err := newSuppliers(st).UpdateScores(ctx, args[0], patch)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), scores)
	},
}

var supplierFormCmd = &cobra.Command{
	Use:   "form <user-id>",
	Short: "Mark a category form as submitted or withdrawn",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		form, _ := cmd.Flags().GetString("form")
		submitted, _ := cmd.Flags().GetBool("submitted")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		forms, err := newSuppliers(st).UpdateFormSubmission(ctx, args[0], model.Category(form), submitted)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), forms)
	},
}

var supplierDetailsCmd = &cobra.Command{
	Use:   "details <user-id>",
	Short: "Update supplier profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		details := model.ProfileDetails{
			CompanyName:   changedString(flags, "company-name"),
			ContactPerson: changedString(flags, "contact-person"),
			Phone:         changedString(flags, "phone"),
			Address:       changedString(flags, "address"),
			Industry:      changedString(flags, "industry"),
			Description:   changedString(flags, "description"),
			Website:       changedString(flags, "website"),
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := newSuppliers(st).UpdateDetails(ctx, args[0], details)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var supplierListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supplier profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		industry, _ := cmd.Flags().GetString("industry")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		profiles, err := newSuppliers(st).List(ctx, store.ProfileFilter{Industry: industry, Limit: limit})
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No suppliers found.")
			return nil
		}
		formatProfileList(cmd.OutOrStdout(), profiles)
		return nil
	},
}

func init() {
	for _, name := range []string{"environmental", "social", "quality", "governance"} {
		supplierScoresCmd.Flags().Float64(name, 0, name+" score (0-100)")
	}

	supplierFormCmd.Flags().String("form", "", "form category (environment, social, quality, governance)")
	supplierFormCmd.Flags().Bool("submitted", true, "submitted flag")
	_ = supplierFormCmd.MarkFlagRequired("form")

	for _, name := range []string{"company-name", "contact-person", "phone", "address", "industry", "description", "website"} {
		supplierDetailsCmd.Flags().String(name, "", name)
	}

	supplierListCmd.Flags().String("industry", "", "filter by industry")
	supplierListCmd.Flags().Int("limit", 50, "max profiles to show")

	supplierCmd.AddCommand(supplierGetCmd, supplierScoresCmd, supplierFormCmd, supplierDetailsCmd, supplierListCmd)
	rootCmd.AddCommand(supplierCmd)
}
