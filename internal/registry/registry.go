// Package registry is the static schema of every ESG category, its fixed set
// of sub-sections and the fields each sub-section accepts. The sub-section
// counts are the score-averaging denominators, so the tables here must only
// change deliberately.
package registry

import (
	"strings"

	"github.com/sells-group/esg-cli/internal/model"
)

// Kind classifies how a field is merged and counted for completion.
type Kind string

// Field kinds.
const (
	KindScalar         Kind = "scalar"
	KindArrayNonEmpty  Kind = "arrayNonEmpty"
	KindNestedOptional Kind = "nestedOptional"
)

// CertificateKey is the certificate field carried by every sub-section.
const CertificateKey = "certificate"

// Field describes one accepted field of a sub-section.
type Field struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	// Leaves are the inner fields of a nestedOptional field.
	Leaves []Field `json:"leaves,omitempty"`
	// Tracked fields count toward completion.
	Tracked bool `json:"tracked"`
}

// Section is the schema of one sub-section.
type Section struct {
	Category    model.Category `json:"category"`
	Name        string         `json:"name"`
	Fields      []Field        `json:"fields"`
	Certificate string         `json:"certificate"`
}

// Field returns the top-level field named path.
func (s Section) Field(path string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return Field{}, false
}

// Checklist flattens the tracked fields into completion entries. Each leaf of
// a nestedOptional field becomes its own entry addressed as "parent.leaf".
func (s Section) Checklist() []Field {
	var out []Field
	for _, f := range s.Fields {
		if !f.Tracked {
			continue
		}
		if f.Kind != KindNestedOptional {
			out = append(out, f)
			continue
		}
		for _, leaf := range f.Leaves {
			out = append(out, Field{Path: f.Path + "." + leaf.Path, Kind: leaf.Kind, Tracked: true})
		}
	}
	return out
}

// Nested returns the names of the nestedOptional fields.
func (s Section) Nested() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Kind == KindNestedOptional {
			out = append(out, f.Path)
		}
	}
	return out
}

// CompanyInfoSection is the pseudo sub-section name used for companyInfo.
const CompanyInfoSection = "companyInfo"

func scalar(path string) Field { return Field{Path: path, Kind: KindScalar, Tracked: true} }

func array(path string) Field { return Field{Path: path, Kind: KindArrayNonEmpty, Tracked: true} }

func nested(path string, leaves ...Field) Field {
	return Field{Path: path, Kind: KindNestedOptional, Leaves: leaves, Tracked: true}
}

func untracked(f Field) Field {
	f.Tracked = false
	return f
}

func section(c model.Category, name string, fields ...Field) Section {
	fields = append(fields, scalar(CertificateKey))
	return Section{Category: c, Name: name, Fields: fields, Certificate: CertificateKey}
}

func valueSection(c model.Category, name string) Section {
	return section(c, name, scalar("value"))
}

var schema = map[model.Category][]Section{
	model.CategoryEnvironment: {
		valueSection(model.CategoryEnvironment, "renewableEnergy"),
		section(model.CategoryEnvironment, "waterConsumption",
			scalar("baseline"), scalar("targets"), scalar("progress")),
		section(model.CategoryEnvironment, "rainwaterHarvesting",
			scalar("volume"), scalar("infrastructure"), scalar("maintenance")),
		section(model.CategoryEnvironment, "emissionControl",
			scalar("chemicalManagement"), array("chemicalList"), array("disposalMethods"),
			nested("scopeEmissions", scalar("scope1"), scalar("scope2"), scalar("scope3"))),
		section(model.CategoryEnvironment, "resourceConservation",
			scalar("wasteDiversion"), scalar("recyclingRate"), array("certifications")),
	},
	model.CategorySocial: {
		valueSection(model.CategorySocial, "swachhWorkplace"),
		section(model.CategorySocial, "occupationalSafety",
			scalar("ltifr"),
			nested("safetyTraining", array("programs"), scalar("coverage")),
			nested("healthServices", scalar("facilities"), scalar("checkupFrequency")),
			nested("emergencyResponse", scalar("plan"), scalar("drills"))),
		section(model.CategorySocial, "hrManagement",
			scalar("humanRightsPolicy"),
			nested("wagesBenefits", scalar("minimumWage"), array("benefits")),
			nested("diversity", scalar("genderRatio"), scalar("leadershipPercentage")),
			nested("grievanceMechanism", scalar("process"), scalar("resolutionRate")),
			nested("trainingDevelopment", scalar("hoursPerEmployee"), array("programs"))),
		section(model.CategorySocial, "csrSocialResponsibilities",
			array("csrProjects"),
			nested("communityInvestment", scalar("amount"), array("initiatives")),
			nested("employeeOutreach", scalar("volunteerHours"), array("programs")),
			nested("socialOutcomes", scalar("beneficiaries"), scalar("impactAssessment"))),
	},
	model.CategoryQuality: {
		valueSection(model.CategoryQuality, "deliveryPerformance"),
		valueSection(model.CategoryQuality, "qualityManagement"),
		valueSection(model.CategoryQuality, "processControl"),
		valueSection(model.CategoryQuality, "materialManagement"),
		valueSection(model.CategoryQuality, "maintenanceCalibration"),
		valueSection(model.CategoryQuality, "technologyUpgradation"),
	},
	model.CategoryGovernance: {
		valueSection(model.CategoryGovernance, "corporateGovernance"),
		valueSection(model.CategoryGovernance, "businessEthics"),
		valueSection(model.CategoryGovernance, "riskManagement"),
		valueSection(model.CategoryGovernance, "regulatoryCompliance"),
		valueSection(model.CategoryGovernance, "dataSecurity"),
	},
}

var companyInfo = Section{
	Category: model.CategoryCompanyInfo,
	Name:     CompanyInfoSection,
	Fields: []Field{
		scalar("companyName"),
		scalar("registrationNumber"),
		scalar("establishmentYear"),
		scalar("companyAddress"),
		scalar("businessType"),
		scalar("registrationCertificate"),
		untracked(scalar("rolesDefinedClearly")),
		untracked(array("organizationRoles")),
		untracked(array("certificates")),
		untracked(scalar("value")),
	},
	Certificate: "registrationCertificate",
}

// Subsections returns the ordered sub-section names of a scored category.
func Subsections(c model.Category) []string {
	secs := schema[c]
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.Name
	}
	return out
}

// Count returns the fixed sub-section count of a scored category.
func Count(c model.Category) int {
	return len(schema[c])
}

// Sections returns the sub-section schemas of a scored category.
func Sections(c model.Category) []Section {
	return schema[c]
}

// CompanyInfo returns the companyInfo schema.
func CompanyInfo() Section {
	return companyInfo
}

// Lookup resolves a category and sub-section name. For companyInfo the
// sub-section may be empty or "companyInfo".
func Lookup(c model.Category, name string) (Section, error) {
	if c == model.CategoryCompanyInfo {
		if name == "" || name == CompanyInfoSection {
			return companyInfo, nil
		}
		return Section{}, model.InvalidInputf("registry: companyInfo has no sub-section %q", name)
	}
	secs, ok := schema[c]
	if !ok {
		return Section{}, model.InvalidInputf("registry: unknown category %q", c)
	}
	for _, s := range secs {
		if s.Name == name {
			return s, nil
		}
	}
	return Section{}, model.InvalidInputf("registry: unknown sub-section %q in %s (expected one of %s)",
		name, c, strings.Join(Subsections(c), ", "))
}

// FieldsOf returns the ordered fields of a sub-section.
func FieldsOf(c model.Category, name string) ([]Field, error) {
	s, err := Lookup(c, name)
	if err != nil {
		return nil, err
	}
	return s.Fields, nil
}

// Validate reports whether the category and sub-section exist.
func Validate(c model.Category, name string) error {
	_, err := Lookup(c, name)
	return err
}
