package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func formatRecordList(w io.Writer, recs []*model.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tCOMPANY\tSTATUS\tENV\tSOC\tQUAL\tGOV\tTOTAL\tUPDATED")
	for _, r := range recs {
		s := r.OverallScore
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			r.ID, r.UserID, r.CompanyID, r.Status,
			s.Environment, s.Social, s.Quality, s.Governance, s.Total,
			r.LastUpdated.Format(time.DateTime),
		)
	}
	tw.Flush() //nolint:errcheck
}

func formatProfileList(w io.Writer, profiles []*model.SupplierProfile) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tCOMPANY\tINDUSTRY\tOVERALL\tUPDATED")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%s\n",
			p.UserID, p.CompanyName, p.Industry, p.ESGScores.Overall, p.UpdatedAt.Format(time.DateTime))
	}
	tw.Flush() //nolint:errcheck
}
