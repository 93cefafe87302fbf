package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/esg-cli/internal/model"
)

func TestPoints(t *testing.T) {
	tests := []struct {
		name     string
		category model.Category
		section  string
		fields   map[string]any
		want     float64
	}{
		{"empty", model.CategoryEnvironment, "renewableEnergy", map[string]any{}, 0},
		{"blank values", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "", "certificate": "  "}, 0},
		{"renewable full", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "50", "certificate": "cert.pdf"}, 20},
		{"renewable capped", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "400"}, 25},
		{"renewable exponent", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "1e3"}, 25},
		{"renewable percent suffix", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "35%"}, 13.5},
		{"renewable numeric", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": 20.0}, 12},
		{"renewable negative", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "-40"}, 10},
		{"renewable non numeric", model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "mostly solar"}, 10},
		{"water targets only", model.CategoryEnvironment, "waterConsumption", map[string]any{"targets": "x"}, 10},
		{"water both", model.CategoryEnvironment, "waterConsumption", map[string]any{"targets": "x", "progress": "y"}, 20},
		{"rainwater both with cert", model.CategoryEnvironment, "rainwaterHarvesting",
			map[string]any{"volume": "100", "infrastructure": "tanks", "certificate": "c"}, 25},
		{"emission empty disposal", model.CategoryEnvironment, "emissionControl",
			map[string]any{"chemicalManagement": "yes", "disposalMethods": []any{}}, 10},
		{"emission bonus", model.CategoryEnvironment, "emissionControl",
			map[string]any{"chemicalManagement": "yes", "disposalMethods": []any{"incineration"}}, 20},
		{"resource bonus", model.CategoryEnvironment, "resourceConservation",
			map[string]any{"wasteDiversion": "40%", "certifications": []any{"ISO 14001"}}, 20},
		{"safety bonus", model.CategorySocial, "occupationalSafety",
			map[string]any{"ltifr": "0.4", "safetyTraining": map[string]any{"programs": []any{"fire"}}}, 20},
		{"safety no programs", model.CategorySocial, "occupationalSafety",
			map[string]any{"ltifr": "0.4", "safetyTraining": map[string]any{"coverage": "80%"}}, 10},
		{"hr bonus", model.CategorySocial, "hrManagement",
			map[string]any{"humanRightsPolicy": "yes", "diversity": map[string]any{"leadershipPercentage": "30"}}, 20},
		{"csr bonus", model.CategorySocial, "csrSocialResponsibilities",
			map[string]any{"csrProjects": []any{"school"}, "communityInvestment": map[string]any{"initiatives": []any{"water"}}}, 20},
		{"nested only counts as data", model.CategorySocial, "hrManagement",
			map[string]any{"diversity": map[string]any{"genderRatio": "1:1"}}, 10},
		{"nested blank is no data", model.CategorySocial, "hrManagement",
			map[string]any{"diversity": map[string]any{"genderRatio": ""}}, 0},
		{"quality cert only bonus", model.CategoryQuality, "processControl",
			map[string]any{"value": "SPC", "certificate": "iso.pdf"}, 15},
		{"governance no bonus", model.CategoryGovernance, "dataSecurity", map[string]any{"value": "999"}, 10},
		{"swachh", model.CategorySocial, "swachhWorkplace", map[string]any{"value": "yes"}, 10},
		{"company info cert", model.CategoryCompanyInfo, "companyInfo",
			map[string]any{"companyName": "Acme", "registrationCertificate": "reg.pdf"}, 15},
		{"company info plain certificate key ignored", model.CategoryCompanyInfo, "companyInfo",
			map[string]any{"companyName": "Acme", "certificate": "x"}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Points(tt.category, tt.section, tt.fields), 1e-9)
		})
	}
}

func TestRuleFor(t *testing.T) {
	assert.NotNil(t, RuleFor(model.CategoryEnvironment, "renewableEnergy"))
	assert.Nil(t, RuleFor(model.CategoryQuality, "processControl"))
	assert.Nil(t, RuleFor(model.CategorySocial, "swachhWorkplace"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"50", 50, true},
		{" 12.5 kWh", 12.5, true},
		{".5", 0.5, true},
		{"1e3", 1000, true},
		{"2.5E-1 ratio", 0.25, true},
		{"5 each", 5, true},
		{"5e", 5, true},
		{"abc", 0, false},
		{"", 0, false},
		{7.0, 7, true},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.in)
	}
}
