package scoring

import (
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

// CategoryScore is the mean points over every registry sub-section of c.
// Missing sub-sections count as zero; keys outside the registry are ignored.
func CategoryScore(c model.Category, data model.CategoryData) float64 {
	n := registry.Count(c)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, name := range registry.Subsections(c) {
		if s := data[name]; s != nil {
			sum += s.Points
		}
	}
	return sum / float64(n)
}

// Aggregate recomputes rec.OverallScore from the stored sub-section points
// and returns it. Every store write path calls it before commit.
func Aggregate(rec *model.Record) model.OverallScore {
	var score model.OverallScore
	var total float64
	for _, c := range model.ScoredCategories {
		data := rec.Category(c)
		warnUnknown(rec, c, data)
		v := CategoryScore(c, data)
		score.Set(c, v)
		total += v
	}
	score.Total = total / float64(len(model.ScoredCategories))
	rec.OverallScore = score
	return score
}

func warnUnknown(rec *model.Record, c model.Category, data model.CategoryData) {
	for name := range data {
		if registry.Validate(c, name) != nil {
			zap.L().Warn("scoring: ignoring sub-section outside registry",
				zap.String("record_id", rec.ID),
				zap.String("category", string(c)),
				zap.String("subsection", name),
			)
		}
	}
}

// Rescore recomputes the points of every stored registry sub-section from
// its fields, then re-aggregates. Manual overrides are replaced.
func Rescore(rec *model.Record) model.OverallScore {
	if rec.CompanyInfo != nil {
		rec.CompanyInfo.Points = Points(model.CategoryCompanyInfo, registry.CompanyInfoSection, rec.CompanyInfo.Fields)
	}
	for _, c := range model.ScoredCategories {
		for name, s := range rec.Category(c) {
			if s == nil || registry.Validate(c, name) != nil {
				continue
			}
			s.Points = Points(c, name, s.Fields)
		}
	}
	return Aggregate(rec)
}
