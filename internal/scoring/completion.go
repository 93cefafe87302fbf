package scoring

import (
	"math"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

// SectionCompletion counts the filled checklist entries of one sub-section.
// A nil sub-section contributes its full checklist to total and nothing to
// filled.
func SectionCompletion(sec registry.Section, s *model.Subsection) (filledCount, total int) {
	checklist := sec.Checklist()
	total = len(checklist)
	if s == nil {
		return 0, total
	}
	for _, f := range checklist {
		if filled(f.Kind, lookup(s.Fields, f.Path)) {
			filledCount++
		}
	}
	return filledCount, total
}

// Completion returns the 0-100 completion percentage of a scored category
// across every registry sub-section, stored or not.
func Completion(c model.Category, data model.CategoryData) int {
	var filledCount, total int
	for _, sec := range registry.Sections(c) {
		f, t := SectionCompletion(sec, data[sec.Name])
		filledCount += f
		total += t
	}
	return percent(filledCount, total)
}

// CompanyInfoCompletion returns the completion percentage of the flat
// companyInfo field list.
func CompanyInfoCompletion(s *model.Subsection) int {
	return percent(SectionCompletion(registry.CompanyInfo(), s))
}

// RecordCompletion returns completion per category, companyInfo included.
func RecordCompletion(rec *model.Record) map[model.Category]int {
	out := make(map[model.Category]int, len(model.ScoredCategories)+1)
	out[model.CategoryCompanyInfo] = CompanyInfoCompletion(rec.CompanyInfo)
	for _, c := range model.ScoredCategories {
		out[c] = Completion(c, rec.Category(c))
	}
	return out
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(total)))
}
