package export

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/scoring"
)

// Sheet names of the XLSX export.
const (
	SheetRecords     = "Records"
	SheetSubsections = "Subsections"
)

// completionCategories is the column order of completion percentages.
var completionCategories = append([]model.Category{model.CategoryCompanyInfo}, model.ScoredCategories...)

// RecordHeaders returns the column headings of the Records sheet.
func RecordHeaders() []string {
	h := []string{"Record ID", "User ID", "Company ID", "Status"}
	for _, c := range model.ScoredCategories {
		h = append(h, Title(string(c))+" Score")
	}
	h = append(h, "Total Score")
	for _, c := range completionCategories {
		h = append(h, Title(string(c))+" Completion")
	}
	return append(h, "Last Updated")
}

// SubsectionHeaders returns the column headings of the Subsections sheet.
func SubsectionHeaders() []string {
	return []string{"Record ID", "Category", "Subsection", "Points", "Remarks", "Last Updated"}
}

func writeXLSX(w io.Writer, records []*model.Record) error {
	f := xlsx.NewFile()
	recSheet, err := f.AddSheet(SheetRecords)
	if err != nil {
		return eris.Wrap(err, "xlsx: add records sheet")
	}
	subSheet, err := f.AddSheet(SheetSubsections)
	if err != nil {
		return eris.Wrap(err, "xlsx: add subsections sheet")
	}
	addStrings(recSheet.AddRow(), RecordHeaders()...)
	addStrings(subSheet.AddRow(), SubsectionHeaders()...)

	for _, rec := range records {
		row := recSheet.AddRow()
		addStrings(row, rec.ID, rec.UserID, rec.CompanyID, string(rec.Status))
		for _, c := range model.ScoredCategories {
			row.AddCell().SetFloat(rec.OverallScore.Get(c))
		}
		row.AddCell().SetFloat(rec.OverallScore.Total)
		completion := scoring.RecordCompletion(rec)
		for _, c := range completionCategories {
			row.AddCell().SetInt(completion[c])
		}
		addStrings(row, formatTime(rec.LastUpdated))

		if rec.CompanyInfo != nil {
			addSubsection(subSheet, rec.ID, model.CategoryCompanyInfo, "companyInfo", rec.CompanyInfo)
		}
		for _, c := range model.ScoredCategories {
			data := rec.Category(c)
			names := make([]string, 0, len(data))
			for name := range data {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if s := data[name]; s != nil {
					addSubsection(subSheet, rec.ID, c, name, s)
				}
			}
		}
	}

	return eris.Wrap(f.Write(w), "xlsx: write workbook")
}

func addSubsection(sheet *xlsx.Sheet, recordID string, c model.Category, name string, s *model.Subsection) {
	row := sheet.AddRow()
	addStrings(row, recordID, Title(string(c)), Title(name))
	row.AddCell().SetFloat(s.Points)
	addStrings(row, s.Remarks, formatTime(s.LastUpdated))
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
