package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

func withPoints(p float64) *model.Subsection {
	return &model.Subsection{Fields: map[string]any{}, Points: p}
}

func TestCategoryScore_FixedDenominator(t *testing.T) {
	tests := []struct {
		category model.Category
		data     model.CategoryData
		want     float64
	}{
		{model.CategoryEnvironment, nil, 0},
		{model.CategoryEnvironment, model.CategoryData{"renewableEnergy": withPoints(20)}, 4},
		{model.CategorySocial, model.CategoryData{"swachhWorkplace": withPoints(10), "hrManagement": withPoints(20)}, 7.5},
		{model.CategoryQuality, model.CategoryData{"processControl": withPoints(15)}, 2.5},
		{model.CategoryGovernance, model.CategoryData{"dataSecurity": withPoints(10), "riskManagement": nil}, 2},
		{model.CategoryQuality, model.CategoryData{"legacyKey": withPoints(60)}, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CategoryScore(tt.category, tt.data), 1e-9)
	}
}

func TestCategoryScore_AllPopulated(t *testing.T) {
	data := model.CategoryData{}
	for i, name := range registry.Subsections(model.CategoryEnvironment) {
		data[name] = withPoints(float64(i + 1))
	}
	assert.InDelta(t, 3.0, CategoryScore(model.CategoryEnvironment, data), 1e-9) // (1+2+3+4+5)/5
}

func TestAggregate(t *testing.T) {
	rec := model.NewRecord("r", owner, t0)
	rec.EnsureCategory(model.CategoryEnvironment)["renewableEnergy"] = withPoints(20)
	rec.EnsureCategory(model.CategorySocial)["swachhWorkplace"] = withPoints(12)
	rec.EnsureCategory(model.CategoryQuality)["stray"] = withPoints(100)
	rec.OverallScore.Governance = 99

	got := Aggregate(rec)
	assert.Equal(t, got, rec.OverallScore)
	assert.InDelta(t, 4, got.Environment, 1e-9)
	assert.InDelta(t, 3, got.Social, 1e-9)
	assert.InDelta(t, 0, got.Quality, 1e-9)
	assert.InDelta(t, 0, got.Governance, 1e-9)
	assert.InDelta(t, 1.75, got.Total, 1e-9)
}

func TestRescore(t *testing.T) {
	rec := model.NewRecord("r", owner, t0)
	rec.EnsureCategory(model.CategoryEnvironment)["renewableEnergy"] = &model.Subsection{
		Fields: map[string]any{"value": "50", "certificate": "cert.pdf"},
		Points: 99,
	}
	rec.EnsureCategory(model.CategoryQuality)["stray"] = &model.Subsection{Fields: map[string]any{"value": "x"}, Points: 7}
	rec.CompanyInfo = &model.Subsection{Fields: map[string]any{"companyName": "Acme"}}

	got := Rescore(rec)
	assert.Equal(t, 20.0, rec.Environment["renewableEnergy"].Points)
	assert.Equal(t, 7.0, rec.Quality["stray"].Points)
	assert.Equal(t, 10.0, rec.CompanyInfo.Points)
	assert.InDelta(t, 4, got.Environment, 1e-9)
	assert.InDelta(t, 1, got.Total, 1e-9)
}
