package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

func sub(fields map[string]any) *model.Subsection {
	return &model.Subsection{Fields: fields}
}

func TestCompletion_EmptyCategory(t *testing.T) {
	for _, c := range model.ScoredCategories {
		assert.Equal(t, 0, Completion(c, nil), c)
		assert.Equal(t, 0, Completion(c, model.CategoryData{}), c)
	}
}

func TestCompletion_FixedDenominator(t *testing.T) {
	// environment checklist: 2 + 4 + 4 + 7 + 4 = 21 entries
	data := model.CategoryData{
		"renewableEnergy": sub(map[string]any{"value": "50", "certificate": "cert.pdf"}),
	}
	assert.Equal(t, 10, Completion(model.CategoryEnvironment, data)) // round(200/21)
}

func TestCompletion_KindRules(t *testing.T) {
	sec, err := registry.Lookup(model.CategoryEnvironment, "emissionControl")
	if !assert.NoError(t, err) {
		return
	}
	s := sub(map[string]any{
		"chemicalManagement": "",
		"chemicalList":       []any{},
		"disposalMethods":    []any{"landfill"},
		"scopeEmissions":     map[string]any{"scope1": "3", "scope2": ""},
		"certificate":        nil,
	})
	f, total := SectionCompletion(sec, s)
	assert.Equal(t, 7, total)
	assert.Equal(t, 2, f)

	f, total = SectionCompletion(sec, nil)
	assert.Equal(t, 0, f)
	assert.Equal(t, 7, total)
}

func TestCompletion_ScalarArrayIsNotArrayField(t *testing.T) {
	sec, _ := registry.Lookup(model.CategoryEnvironment, "resourceConservation")
	f, _ := SectionCompletion(sec, sub(map[string]any{"certifications": "ISO 14001"}))
	assert.Equal(t, 0, f)
}

func TestCompletion_FullCategoryIs100(t *testing.T) {
	data := model.CategoryData{}
	for _, sec := range registry.Sections(model.CategorySocial) {
		fields := map[string]any{}
		for _, f := range sec.Fields {
			switch f.Kind {
			case registry.KindScalar:
				fields[f.Path] = "x"
			case registry.KindArrayNonEmpty:
				fields[f.Path] = []any{"x"}
			case registry.KindNestedOptional:
				inner := map[string]any{}
				for _, leaf := range f.Leaves {
					if leaf.Kind == registry.KindArrayNonEmpty {
						inner[leaf.Path] = []any{"x"}
					} else {
						inner[leaf.Path] = "x"
					}
				}
				fields[f.Path] = inner
			}
		}
		data[sec.Name] = sub(fields)
	}
	assert.Equal(t, 100, Completion(model.CategorySocial, data))

	delete(data["hrManagement"].Fields, registry.CertificateKey)
	assert.Less(t, Completion(model.CategorySocial, data), 100)
}

func TestCompletion_IgnoresUnknownSubsections(t *testing.T) {
	data := model.CategoryData{"legacy": sub(map[string]any{"value": "x", "certificate": "y"})}
	assert.Equal(t, 0, Completion(model.CategoryQuality, data))
}

func TestCompanyInfoCompletion(t *testing.T) {
	assert.Equal(t, 0, CompanyInfoCompletion(nil))
	assert.Equal(t, 17, CompanyInfoCompletion(sub(map[string]any{"companyName": "Acme", "organizationRoles": []any{"ceo"}})))
	assert.Equal(t, 100, CompanyInfoCompletion(sub(map[string]any{
		"companyName": "Acme", "registrationNumber": "R", "establishmentYear": "1999",
		"companyAddress": "A", "businessType": "B", "registrationCertificate": "r.pdf",
	})))
}

func TestRecordCompletion(t *testing.T) {
	rec := model.NewRecord("r", owner, t0)
	rec.EnsureCategory(model.CategoryGovernance)["dataSecurity"] = sub(map[string]any{"value": "x", "certificate": "y"})

	got := RecordCompletion(rec)
	assert.Len(t, got, 5)
	assert.Equal(t, 20, got[model.CategoryGovernance])
	assert.Equal(t, 0, got[model.CategoryCompanyInfo])
}
